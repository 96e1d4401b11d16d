package core

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// OptionExtractor simplifies extraction of options for Discord commands
type OptionExtractor struct {
	options []*discordgo.ApplicationCommandInteractionDataOption
}

// NewOptionExtractor creates a new option extractor
func NewOptionExtractor(options []*discordgo.ApplicationCommandInteractionDataOption) *OptionExtractor {
	return &OptionExtractor{options: options}
}

// String extracts a string option by name
func (e *OptionExtractor) String(name string) string {
	for _, opt := range e.options {
		if opt.Name == name {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

// StringRequired extracts a required string option
func (e *OptionExtractor) StringRequired(name string) (string, error) {
	value := e.String(name)
	if value == "" {
		return "", NewValidationError(name, fmt.Sprintf("Option '%s' is required", name))
	}
	return value, nil
}

// Bool extracts a boolean option by name
func (e *OptionExtractor) Bool(name string) bool {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt.BoolValue()
		}
	}
	return false
}

// Int extracts an integer option by name
func (e *OptionExtractor) Int(name string) int64 {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

// RoleID extracts a role option's id by name
func (e *OptionExtractor) RoleID(name string) string {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt.RoleValue(nil, "").ID
		}
	}
	return ""
}

// UserID extracts a user option's id by name
func (e *OptionExtractor) UserID(name string) string {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt.UserValue(nil).ID
		}
	}
	return ""
}

// HasOption checks whether an option exists
func (e *OptionExtractor) HasOption(name string) bool {
	for _, opt := range e.options {
		if opt.Name == name {
			return true
		}
	}
	return false
}

// ModalFields flattens a modal submission into field id -> value.
func ModalFields(data discordgo.ModalSubmitInteractionData) map[string]string {
	fields := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range actionsRow.Components {
			if input, ok := c.(*discordgo.TextInput); ok {
				fields[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	return fields
}
