package roles

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

var (
	// ErrPermissionDenied means the bot lacks Manage Roles (or sits below
	// the target role). Fatal for this click; reported with remediation.
	ErrPermissionDenied = errors.New("roles: missing permission to manage role")

	// ErrToggleFailed covers any other remote role mutation failure.
	ErrToggleFailed = errors.New("roles: toggle failed")
)

// Action is the outcome of a toggle.
type Action string

const (
	ActionGranted Action = "granted"
	ActionRevoked Action = "revoked"
)

// RoleClient issues the remote role mutations. *discordgo.Session satisfies it.
type RoleClient interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Effector applies role toggles. The policy is a pure flip: a member holding
// the role gets it revoked, anyone else gets it granted. There is no
// separate "already has role" success class.
type Effector struct {
	client RoleClient
	logger *log.Logger
}

// NewEffector creates an effector over the given client.
func NewEffector(client RoleClient, logger *log.Logger) *Effector {
	return &Effector{client: client, logger: logger}
}

// Apply toggles roleID on the member whose current roles are currentRoles.
func (e *Effector) Apply(guildID, userID, roleID string, currentRoles []string) (Action, error) {
	var action Action
	var err error
	if slices.Contains(currentRoles, roleID) {
		action = ActionRevoked
		err = e.client.GuildMemberRoleRemove(guildID, userID, roleID)
	} else {
		action = ActionGranted
		err = e.client.GuildMemberRoleAdd(guildID, userID, roleID)
	}
	if err != nil {
		return "", e.classify(err, guildID, roleID)
	}
	return action, nil
}

func (e *Effector) classify(err error, guildID, roleID string) error {
	if restErrorCode(err) == discordgo.ErrCodeMissingPermissions {
		return ErrPermissionDenied
	}
	e.logger.WithFields(map[string]any{
		"guild_id": guildID,
		"role_id":  roleID,
	}).ErrorWithErr("Role toggle failed", err)
	return fmt.Errorf("%w: %v", ErrToggleFailed, err)
}

func restErrorCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}
