package core

import (
	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/component"
)

// Embed colors for standard responses.
const (
	colorSuccess = 0x57F287
	colorError   = 0xED4245
	colorInfo    = 0x5865F2
)

// Responder sends standard interaction responses.
type Responder struct {
	session *discordgo.Session
}

// NewResponder creates a responder over the given session.
func NewResponder(session *discordgo.Session) *Responder {
	return &Responder{session: session}
}

// Success sends an ephemeral success embed.
func (r *Responder) Success(i *discordgo.InteractionCreate, message string) error {
	return r.embed(i, message, colorSuccess, true)
}

// Error sends an ephemeral error embed.
func (r *Responder) Error(i *discordgo.InteractionCreate, message string) error {
	return r.embed(i, message, colorError, true)
}

// Info sends an ephemeral informational embed.
func (r *Responder) Info(i *discordgo.InteractionCreate, message string) error {
	return r.embed(i, message, colorInfo, true)
}

// Embed sends an arbitrary embed, optionally with components.
func (r *Responder) Embed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool, components ...discordgo.MessageComponent) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Flags:      flags,
			Components: components,
		},
	})
}

// Modal presents a form built from a component tree.
func (r *Responder) Modal(i *discordgo.InteractionCreate, customID, title string, form component.Tree) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: form.MessageComponents(),
		},
	})
}

func (r *Responder) embed(i *discordgo.InteractionCreate, message string, color int, ephemeral bool) error {
	return r.Embed(i, &discordgo.MessageEmbed{Description: message, Color: color}, ephemeral)
}
