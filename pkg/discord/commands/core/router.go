package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
	"github.com/ssMMiles/easy-roles/pkg/util"
)

// User-facing texts for controls that can no longer be dispatched.
const (
	msgControlUnavailable = "This control is no longer available."
	msgControlExpired     = "This control has expired. Please run the command again."
	msgGuildOnly          = "This command can only be used in a server."
	msgAdminOnly          = "You do not have permission to use this command."
	msgCommandFailed      = "An error occurred while executing the command."
)

// StateStore persists component state that does not fit inline in a
// custom id.
type StateStore interface {
	PutState(rec storage.StateRecord) error
	GetState(refID string) (*storage.StateRecord, error)
}

// Router dispatches slash commands, button clicks and modal submissions.
// Component custom ids are decoded through the token registry; reference
// tokens get their payload resolved from the state store before the
// handler runs.
type Router struct {
	session    *discordgo.Session
	commands   map[string]Command
	components *component.Registry[ComponentHandler]
	responder  *Responder
	states     StateStore
	logger     *log.Logger
}

// NewRouter creates a router over the given session and state store.
func NewRouter(session *discordgo.Session, states StateStore, logger *log.Logger) *Router {
	return &Router{
		session:    session,
		commands:   make(map[string]Command),
		components: component.NewRegistry[ComponentHandler](),
		responder:  NewResponder(session),
		states:     states,
		logger:     logger,
	}
}

// Responder exposes the router's responder for handlers built outside it.
func (r *Router) Responder() *Responder {
	return r.responder
}

// RegisterCommand adds a slash command. Duplicate names panic; commands
// are registered once at startup.
func (r *Router) RegisterCommand(cmd Command) {
	if _, exists := r.commands[cmd.Name()]; exists {
		panic(fmt.Sprintf("core: duplicate command %q", cmd.Name()))
	}
	r.commands[cmd.Name()] = cmd
}

// RegisterComponent adds a handler for a component handler id.
func (r *Router) RegisterComponent(handlerID string, handler ComponentHandler) {
	r.components.Register(handlerID, handler)
}

// EncodeState encodes a handler payload into a custom id token. Payloads
// that fit go inline; larger ones are persisted and referenced by id.
// A zero ttl means the stored state never expires.
func (r *Router) EncodeState(handlerID string, payload any, ttl time.Duration) (string, error) {
	token, err := component.EncodeInline(handlerID, payload)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, component.ErrPayloadTooLarge) {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("core: marshal state payload: %w", err)
	}

	rec := storage.StateRecord{
		RefID:     uuid.NewString(),
		HandlerID: handlerID,
		Payload:   raw,
	}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl)
		rec.HasExpiry = true
	}
	if err := r.states.PutState(rec); err != nil {
		return "", fmt.Errorf("core: persist state payload: %w", err)
	}

	return component.EncodeReference(handlerID, rec.RefID)
}

// HandleInteraction is the discordgo event handler entry point.
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(i, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		r.handleComponent(i, i.ModalSubmitData().CustomID)
	}
}

func (r *Router) handleCommand(i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name

	ctx := &Context{
		Session:     r.session,
		Interaction: i,
		Responder:   r.responder,
		Logger:      r.logger.WithField("command", name),
		GuildID:     i.GuildID,
		UserID:      interactionUserID(i),
	}

	cmd, exists := r.commands[name]
	if !exists {
		ctx.Logger.Warn("Unknown command received")
		_ = r.responder.Error(i, msgControlUnavailable)
		return
	}

	if cmd.RequiresGuild() && ctx.GuildID == "" {
		_ = r.responder.Error(i, msgGuildOnly)
		return
	}
	if cmd.RequiresAdmin() && !isAdmin(i) {
		ctx.Logger.Warn("User without permission tried to use command")
		_ = r.responder.Error(i, msgAdminOnly)
		return
	}

	if err := cmd.Handle(ctx); err != nil {
		r.respondError(ctx.Logger, i, err)
	}
}

func (r *Router) handleComponent(i *discordgo.InteractionCreate, customID string) {
	token, handler, err := r.components.Decode(customID)
	if err != nil {
		r.logger.WithFields(map[string]any{
			"custom_id": util.Truncate(customID, 40),
			"error":     err.Error(),
		}).Warn("Undispatchable component interaction")
		_ = r.responder.Error(i, msgControlUnavailable)
		return
	}

	state := token.Inline
	if token.IsReference() {
		rec, err := r.states.GetState(token.RefID)
		if err != nil {
			r.logger.ErrorWithErr("Failed to load component state", err)
			_ = r.responder.Error(i, msgCommandFailed)
			return
		}
		if rec == nil {
			_ = r.responder.Error(i, msgControlExpired)
			return
		}
		state = rec.Payload
	}

	ctx := &ComponentContext{
		Session:     r.session,
		Interaction: i,
		Responder:   r.responder,
		Logger:      r.logger.WithField("handler", token.Handler),
		GuildID:     i.GuildID,
		UserID:      interactionUserID(i),
		State:       state,
	}

	if err := handler(ctx); err != nil {
		r.respondError(ctx.Logger, i, err)
	}
}

func (r *Router) respondError(logger *log.Logger, i *discordgo.InteractionCreate, err error) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		_ = r.responder.Error(i, cmdErr.Message)
		return
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		_ = r.responder.Error(i, valErr.Message)
		return
	}

	logger.ErrorWithErr("Handler failed", err)
	_ = r.responder.Error(i, msgCommandFailed)
}

// Sync replaces the application's global command set with the registered
// commands in one bulk overwrite.
func (r *Router) Sync() error {
	desired := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, cmd := range r.commands {
		desired = append(desired, &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		})
	}

	if _, err := r.session.ApplicationCommandBulkOverwrite(r.session.State.User.ID, "", desired); err != nil {
		return fmt.Errorf("core: sync commands: %w", err)
	}

	r.logger.WithField("count", len(desired)).Info("Command synchronization completed")
	return nil
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
