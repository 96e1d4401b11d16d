package roles

import (
	"errors"
	"fmt"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

var (
	// ErrSecretNotFound means the referenced secret no longer exists (e.g.
	// deleted after the button was created). Terminal for this attempt.
	ErrSecretNotFound = errors.New("roles: secret not found")

	// ErrSecretMismatch means the submitted text differs from the stored
	// secret. Terminal; the user may reopen the original button to retry.
	ErrSecretMismatch = errors.New("roles: incorrect secret")
)

// Phase tracks a verification attempt through the gate.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseChallenged
	PhaseVerified
	PhaseApplied
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChallenged:
		return "challenged"
	case PhaseVerified:
		return "verified"
	case PhaseApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// ChallengeState is the modal's own state payload: the secret's storage id
// and the target role, both small enough to re-encode inline.
type ChallengeState struct {
	RoleID   string `json:"r"`
	SecretID string `json:"s"`
}

// ChallengeHandlerID is the handler the verification modal submits to.
const ChallengeHandlerID = "role-secret"

// secretFieldID is the custom id of the modal's single text input.
const secretFieldID = "secret"

// Challenge is what gets presented when a protected button is clicked: a
// one-field form asking for the secret, its custom id carrying the
// challenge state forward.
type Challenge struct {
	Token string
	Title string
	Form  component.Tree
}

// SecretStore is the slice of persistence the gate needs.
type SecretStore interface {
	GetSecret(id string) (*storage.SecretRecord, error)
}

// Gate drives the secret verification flow:
//
//	Idle -> Challenged -> Verified -> Applied
//
// terminal on Applied or any rejection. The verified secret is consumed by
// a single apply attempt; effector failures are not retried with it.
type Gate struct {
	secrets  SecretStore
	effector *Effector
	logger   *log.Logger
}

// NewGate creates a gate over the given secret store and effector.
func NewGate(secrets SecretStore, effector *Effector, logger *log.Logger) *Gate {
	return &Gate{secrets: secrets, effector: effector, logger: logger}
}

// Challenge moves Idle -> Challenged: builds the verification form for a
// protected button. The token must already encode a ChallengeState under
// ChallengeHandlerID; role and secret ids push the payload past the
// custom id limit, so the caller encodes it with reference fallback.
func (g *Gate) Challenge(token string) Challenge {
	form := component.Tree{Rows: []component.Row{{Controls: []component.Control{{
		Kind:        component.KindTextInput,
		Label:       "Secret",
		StateToken:  secretFieldID,
		Placeholder: "This button requires a secret key to use, please enter it here.",
		Required:    true,
	}}}}}

	return Challenge{Token: token, Title: "Secret Verification", Form: form}
}

// SecretField extracts the submitted secret from a modal's field values.
func SecretField(fields map[string]string) string {
	return fields[secretFieldID]
}

// Submit moves Challenged -> Verified -> Applied: looks the secret up,
// compares the submission, and on a match delegates the toggle to the
// effector. Effector errors pass through unchanged.
func (g *Gate) Submit(st ChallengeState, submitted, guildID, userID string, currentRoles []string) (Action, error) {
	phase := PhaseChallenged

	secret, err := g.secrets.GetSecret(st.SecretID)
	if err != nil {
		return "", fmt.Errorf("roles: load secret: %w", err)
	}
	if secret == nil {
		return "", ErrSecretNotFound
	}
	if secret.Text != submitted {
		return "", ErrSecretMismatch
	}
	phase = PhaseVerified

	action, err := g.effector.Apply(guildID, userID, st.RoleID, currentRoles)
	if err != nil {
		// The secret is consumed regardless; no replay across attempts.
		g.logger.WithFields(map[string]any{
			"guild_id": guildID,
			"phase":    phase.String(),
		}).Debug("Secret gate terminated during apply")
		return "", err
	}
	phase = PhaseApplied

	g.logger.WithFields(map[string]any{
		"guild_id": guildID,
		"role_id":  st.RoleID,
		"action":   string(action),
		"phase":    phase.String(),
	}).Debug("Secret gate completed")
	return action, nil
}
