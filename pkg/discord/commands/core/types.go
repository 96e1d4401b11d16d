package core

import (
	"encoding/json"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

// Command is a top-level slash command.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	RequiresAdmin() bool
}

// Context carries everything a slash command handler needs.
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Responder   *Responder
	Logger      *log.Logger
	GuildID     string
	UserID      string
}

// Options wraps the interaction's option list in an extractor.
func (ctx *Context) Options() *OptionExtractor {
	return NewOptionExtractor(ctx.Interaction.ApplicationCommandData().Options)
}

// ComponentContext carries everything a component or modal handler needs.
// State holds the decoded payload: inline tokens carry it directly,
// reference tokens have it resolved from storage before dispatch.
type ComponentContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Responder   *Responder
	Logger      *log.Logger
	GuildID     string
	UserID      string
	State       json.RawMessage
}

// BindState unmarshals the state payload into v.
func (ctx *ComponentContext) BindState(v any) error {
	if len(ctx.State) == 0 {
		return nil
	}
	return json.Unmarshal(ctx.State, v)
}

// ComponentHandler processes a button click or modal submission.
type ComponentHandler func(ctx *ComponentContext) error

// CommandError is a handler failure with a message meant for the user.
type CommandError struct {
	Message   string
	Ephemeral bool
}

func (e *CommandError) Error() string {
	return e.Message
}

// NewCommandError creates a user-facing command error.
func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{Message: message, Ephemeral: ephemeral}
}

// ValidationError reports a bad option value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error for a named option.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SimpleCommand implements Command for commands declared inline.
type SimpleCommand struct {
	name          string
	description   string
	options       []*discordgo.ApplicationCommandOption
	handler       func(ctx *Context) error
	requiresGuild bool
	requiresAdmin bool
}

// NewSimpleCommand builds a Command from its parts.
func NewSimpleCommand(
	name, description string,
	options []*discordgo.ApplicationCommandOption,
	handler func(ctx *Context) error,
	requiresGuild, requiresAdmin bool,
) *SimpleCommand {
	return &SimpleCommand{
		name:          name,
		description:   description,
		options:       options,
		handler:       handler,
		requiresGuild: requiresGuild,
		requiresAdmin: requiresAdmin,
	}
}

func (sc *SimpleCommand) Name() string        { return sc.name }
func (sc *SimpleCommand) Description() string { return sc.description }
func (sc *SimpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return sc.options
}
func (sc *SimpleCommand) Handle(ctx *Context) error { return sc.handler(ctx) }
func (sc *SimpleCommand) RequiresGuild() bool       { return sc.requiresGuild }
func (sc *SimpleCommand) RequiresAdmin() bool       { return sc.requiresAdmin }
