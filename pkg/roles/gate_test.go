package roles

import (
	"errors"
	"testing"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

type fakeSecretStore struct {
	secrets map[string]*storage.SecretRecord
}

func (f *fakeSecretStore) GetSecret(id string) (*storage.SecretRecord, error) {
	return f.secrets[id], nil
}

func newGate(t *testing.T, client *fakeRoleClient) *Gate {
	t.Helper()

	secrets := &fakeSecretStore{secrets: map[string]*storage.SecretRecord{
		"s1": {ID: "s1", GuildID: "g1", RoleID: "42", Text: "swordfish"},
	}}
	return NewGate(secrets, NewEffector(client, log.Default()), log.Default())
}

func TestChallengeBuildsOneFieldForm(t *testing.T) {
	t.Parallel()

	gate := newGate(t, &fakeRoleClient{})

	token, err := component.EncodeInline(ChallengeHandlerID, ChallengeState{RoleID: "42", SecretID: "s1"})
	if err != nil {
		t.Fatalf("EncodeInline failed: %v", err)
	}

	challenge := gate.Challenge(token)
	if challenge.Title != "Secret Verification" {
		t.Fatalf("title mismatch: got %q", challenge.Title)
	}
	if len(challenge.Form.Rows) != 1 || len(challenge.Form.Rows[0].Controls) != 1 {
		t.Fatalf("unexpected form shape: %+v", challenge.Form)
	}
	if kind := challenge.Form.Rows[0].Controls[0].Kind; kind != component.KindTextInput {
		t.Fatalf("field kind mismatch: got %q", kind)
	}

	// The state token passes through untouched.
	decoded, err := component.Decode(challenge.Token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Handler != ChallengeHandlerID {
		t.Fatalf("handler mismatch: got %q", decoded.Handler)
	}
}

func TestSubmitCorrectSecretAppliesToggle(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{}
	gate := newGate(t, client)

	action, err := gate.Submit(ChallengeState{RoleID: "42", SecretID: "s1"}, "swordfish", "g1", "u1", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if action != ActionGranted {
		t.Fatalf("action mismatch: got %q want %q", action, ActionGranted)
	}
	if client.adds != 1 {
		t.Fatalf("grant call count mismatch: got %d want 1", client.adds)
	}

	// A member already holding the role gets it revoked instead.
	action, err = gate.Submit(ChallengeState{RoleID: "42", SecretID: "s1"}, "swordfish", "g1", "u1", []string{"42"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if action != ActionRevoked {
		t.Fatalf("action mismatch: got %q want %q", action, ActionRevoked)
	}
}

func TestSubmitWrongSecret(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{}
	gate := newGate(t, client)

	_, err := gate.Submit(ChallengeState{RoleID: "42", SecretID: "s1"}, "wrong", "g1", "u1", nil)
	if !errors.Is(err, ErrSecretMismatch) {
		t.Fatalf("expected ErrSecretMismatch, got %v", err)
	}
	if client.adds != 0 || client.removes != 0 {
		t.Fatal("role call issued despite mismatch")
	}
}

func TestSubmitMissingSecret(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{}
	gate := newGate(t, client)

	_, err := gate.Submit(ChallengeState{RoleID: "42", SecretID: "deleted"}, "swordfish", "g1", "u1", nil)
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
	if client.adds != 0 || client.removes != 0 {
		t.Fatal("role call issued despite missing secret")
	}
}

func TestSubmitEffectorFailurePassesThrough(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{err: errors.New("boom")}
	gate := newGate(t, client)

	_, err := gate.Submit(ChallengeState{RoleID: "42", SecretID: "s1"}, "swordfish", "g1", "u1", nil)
	if !errors.Is(err, ErrToggleFailed) {
		t.Fatalf("expected ErrToggleFailed, got %v", err)
	}
}
