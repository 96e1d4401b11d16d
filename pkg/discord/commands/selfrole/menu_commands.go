package selfrole

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/discord/commands/core"
	"github.com/ssMMiles/easy-roles/pkg/menu"
	"github.com/ssMMiles/easy-roles/pkg/roles"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

// User-facing texts shared across the menu commands.
const (
	errNeedCreateMenu = "You need to use ``/create-menu`` first."
	errLabelOrEmoji   = "You must provide either a label or an emoji."
	errMenuFull       = "This menu already has the maximum number of buttons."
	errMessageMissing = "I can't find this message, please ensure it hasn't been deleted and that the bot has access to view the channel."
	errWebhookDeleted = "The webhook for this channel seems to have been deleted. This isn't recommended as you'll no longer be able to edit previously created menus, although their buttons will still function.\n\n" +
		"To continue, you'll have to create a new menu with ``/create-menu``."
	errRolePermission = "I don't have permission to assign this role. Please check that I have the ``Manage Roles`` permission and that my role is above the one you're trying to toggle."
	errInvalidColour  = "Invalid colour. You must enter a hex colour code such as #36adcf."
	errUnknownButton  = "An unknown error occurred while adding your button."
	errUnknownUpdate  = "An unknown error occurred while updating your message."
	errUnknown        = "An unknown error occurred."
)

var hexColourPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ToggleState is a role button's payload. Gated buttons carry the secret
// id and end up in the state store; plain ones fit inline.
type ToggleState struct {
	RoleID   string `json:"r"`
	Ordinal  int    `json:"o"`
	SecretID string `json:"s,omitempty"`
}

// MenuEditState is the edit button's payload: the target message plus the
// embed fields the modal prefills.
type MenuEditState struct {
	MessageID   string `json:"m"`
	Title       string `json:"t,omitempty"`
	Description string `json:"d,omitempty"`
	Colour      string `json:"c,omitempty"`
	Image       string `json:"i,omitempty"`
}

// MenuEditSubmitState is the edit modal's payload.
type MenuEditSubmitState struct {
	MessageID string `json:"m"`
}

func (c *Commands) registerMenuCommands() {
	c.router.RegisterCommand(core.NewSimpleCommand(
		"create-menu",
		"Create a new Self-Role menu in this channel.",
		[]*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "title",
				Description: "A title for your menu.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "description",
				Description: "A description for your menu.",
			},
		},
		c.handleCreateMenu,
		true, true,
	))

	c.router.RegisterCommand(core.NewSimpleCommand(
		"create-role-button",
		"Create a Self-Role button on your most recent menu.",
		[]*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "The role to assign to the button.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "colour",
				Description: "A background colour for your button.",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Blue", Value: int(discordgo.PrimaryButton)},
					{Name: "Grey", Value: int(discordgo.SecondaryButton)},
					{Name: "Green", Value: int(discordgo.SuccessButton)},
					{Name: "Red", Value: int(discordgo.DangerButton)},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "label",
				Description: "A label for your button.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "emoji",
				Description: "An emoji for your button.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "secret",
				Description: "A secret key users will need to enter to use this button.",
			},
		},
		c.handleCreateRoleButton,
		true, true,
	))

	c.router.RegisterCommand(core.NewSimpleCommand(
		"edit-menu",
		"Edit the most recent Self-Role menu in this channel.",
		nil,
		c.handleEditMenu,
		true, true,
	))

	c.router.RegisterComponent(handlerRoleToggle, c.handleRoleToggle)
	c.router.RegisterComponent(roles.ChallengeHandlerID, c.handleRoleSecret)
	c.router.RegisterComponent(handlerMenuEdit, c.handleMenuEditButton)
	c.router.RegisterComponent(handlerMenuEditModal, c.handleMenuEditModal)
}

func (c *Commands) handleCreateMenu(ctx *core.Context) error {
	opts := ctx.Options()

	embed := &discordgo.MessageEmbed{
		Title:       opts.String("title"),
		Description: opts.String("description"),
	}

	messageID, err := c.publisher.Publish(ctx.GuildID, ctx.Interaction.ChannelID, embed)
	if err != nil {
		ctx.Logger.ErrorWithErr("Failed to publish menu", err)
		return core.NewCommandError("An unknown error occurred while creating your menu.", true)
	}

	ctx.Logger.WithField("message_id", messageID).Info("Menu created")
	return ctx.Responder.Success(ctx.Interaction, "Menu created!")
}

func (c *Commands) handleCreateRoleButton(ctx *core.Context) error {
	opts := ctx.Options()

	record, err := c.store.GetMenu(ctx.GuildID, ctx.Interaction.ChannelID)
	if err != nil {
		return err
	}
	if record == nil || record.LatestMessageID == "" {
		return core.NewCommandError(errNeedCreateMenu, true)
	}

	label := opts.String("label")
	emoji := opts.String("emoji")
	if label == "" && emoji == "" {
		return core.NewCommandError(errLabelOrEmoji, true)
	}

	roleID := opts.RoleID("role")
	style := int(opts.Int("colour"))

	secretID := ""
	if secret := opts.String("secret"); secret != "" {
		secretID = uuid.NewString()
		if err := c.store.CreateSecret(storage.SecretRecord{
			ID:      secretID,
			GuildID: ctx.GuildID,
			RoleID:  roleID,
			Text:    secret,
		}); err != nil {
			return err
		}
	}

	_, err = c.mutator.AppendControl(ctx.GuildID, ctx.Interaction.ChannelID, func(ordinal int) (component.Control, error) {
		token, err := c.router.EncodeState(handlerRoleToggle, ToggleState{
			RoleID:   roleID,
			Ordinal:  ordinal,
			SecretID: secretID,
		}, 0)
		if err != nil {
			return component.Control{}, err
		}
		return component.Control{
			Kind:       component.KindButton,
			Label:      label,
			Emoji:      emoji,
			Style:      style,
			StateToken: token,
		}, nil
	})
	if err != nil {
		// The secret is useless without its button.
		if secretID != "" {
			if delErr := c.store.DeleteSecret(secretID); delErr != nil {
				ctx.Logger.ErrorWithErr("Failed to delete orphaned secret", delErr)
			}
		}
		return c.mutationError(err, errUnknownButton)
	}

	ctx.Logger.WithField("role_id", roleID).Info("Role button created")
	return ctx.Responder.Success(ctx.Interaction, "Button created!")
}

func (c *Commands) handleEditMenu(ctx *core.Context) error {
	record, err := c.store.GetMenu(ctx.GuildID, ctx.Interaction.ChannelID)
	if err != nil {
		return err
	}
	if record == nil || record.LatestMessageID == "" {
		return core.NewCommandError(errNeedCreateMenu, true)
	}

	message, err := ctx.Session.WebhookMessage(record.WebhookID, record.WebhookToken, record.LatestMessageID)
	if err != nil {
		return c.webhookFetchError(ctx, err)
	}

	state := MenuEditState{MessageID: record.LatestMessageID}
	if len(message.Embeds) > 0 {
		embed := message.Embeds[0]
		state.Title = embed.Title
		state.Description = embed.Description
		if embed.Color != 0 {
			state.Colour = fmt.Sprintf("#%06x", embed.Color)
		}
		if embed.Image != nil {
			state.Image = embed.Image.URL
		}
	}

	token, err := c.router.EncodeState(handlerMenuEdit, state, challengeTTL)
	if err != nil {
		return err
	}

	return ctx.Responder.Embed(ctx.Interaction,
		&discordgo.MessageEmbed{Description: "Press the button below to edit your menu."},
		true,
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Edit",
				Style:    discordgo.PrimaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🖋"},
				CustomID: token,
			},
		}},
	)
}

func (c *Commands) handleRoleToggle(ctx *core.ComponentContext) error {
	var st ToggleState
	if err := ctx.BindState(&st); err != nil {
		return err
	}
	if ctx.Interaction.Member == nil || ctx.GuildID == "" {
		return nil
	}

	if st.SecretID != "" {
		token, err := c.router.EncodeState(roles.ChallengeHandlerID, roles.ChallengeState{
			RoleID:   st.RoleID,
			SecretID: st.SecretID,
		}, challengeTTL)
		if err != nil {
			return err
		}
		challenge := c.gate.Challenge(token)
		return ctx.Responder.Modal(ctx.Interaction, challenge.Token, challenge.Title, challenge.Form)
	}

	action, err := c.effector.Apply(ctx.GuildID, ctx.UserID, st.RoleID, ctx.Interaction.Member.Roles)
	if err != nil {
		return c.toggleError(err)
	}

	return ctx.Responder.Success(ctx.Interaction, toggleMessage(action, st.RoleID))
}

func (c *Commands) handleRoleSecret(ctx *core.ComponentContext) error {
	var st roles.ChallengeState
	if err := ctx.BindState(&st); err != nil {
		return err
	}
	if ctx.Interaction.Member == nil || ctx.GuildID == "" {
		return nil
	}

	submitted := roles.SecretField(core.ModalFields(ctx.Interaction.ModalSubmitData()))

	action, err := c.gate.Submit(st, submitted, ctx.GuildID, ctx.UserID, ctx.Interaction.Member.Roles)
	switch {
	case errors.Is(err, roles.ErrSecretNotFound):
		return core.NewCommandError("Secret not found.", true)
	case errors.Is(err, roles.ErrSecretMismatch):
		return core.NewCommandError("Incorrect secret!", true)
	case err != nil:
		return c.toggleError(err)
	}

	return ctx.Responder.Success(ctx.Interaction, toggleMessage(action, st.RoleID))
}

func (c *Commands) handleMenuEditButton(ctx *core.ComponentContext) error {
	var st MenuEditState
	if err := ctx.BindState(&st); err != nil {
		return err
	}
	if st.MessageID == "" {
		return core.NewCommandError(errUnknown, true)
	}

	token, err := c.router.EncodeState(handlerMenuEditModal, MenuEditSubmitState{MessageID: st.MessageID}, challengeTTL)
	if err != nil {
		return err
	}

	form := component.Tree{Rows: []component.Row{
		{Controls: []component.Control{{
			Kind:       component.KindTextInput,
			Label:      "Title",
			StateToken: "title",
			Required:   true,
			MaxLength:  80,
			Value:      st.Title,
		}}},
		{Controls: []component.Control{{
			Kind:       component.KindTextInput,
			Label:      "Description",
			StateToken: "description",
			Style:      int(discordgo.TextInputParagraph),
			Required:   true,
			MaxLength:  4000,
			Value:      st.Description,
		}}},
		{Controls: []component.Control{{
			Kind:        component.KindTextInput,
			Label:       "Colour",
			StateToken:  "colour",
			Placeholder: "#36adcf",
			Value:       st.Colour,
		}}},
		{Controls: []component.Control{{
			Kind:       component.KindTextInput,
			Label:      "Image URL",
			StateToken: "image",
			Value:      st.Image,
		}}},
	}}

	return ctx.Responder.Modal(ctx.Interaction, token, "Edit your Menu", form)
}

func (c *Commands) handleMenuEditModal(ctx *core.ComponentContext) error {
	var st MenuEditSubmitState
	if err := ctx.BindState(&st); err != nil {
		return err
	}

	fields := core.ModalFields(ctx.Interaction.ModalSubmitData())

	title := fields["title"]
	description := fields["description"]
	if title == "" && description == "" {
		return core.NewCommandError("Either a title or description is required.", true)
	}

	embed := &discordgo.MessageEmbed{Title: title, Description: description}

	if colour := fields["colour"]; colour != "" {
		if !hexColourPattern.MatchString(colour) {
			return core.NewCommandError(errInvalidColour, true)
		}
		parsed, err := strconv.ParseInt(colour[1:], 16, 32)
		if err != nil {
			return core.NewCommandError(errInvalidColour, true)
		}
		embed.Color = int(parsed)
	}

	if image := fields["image"]; image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: image}
	}

	if err := c.mutator.ReplaceEmbed(ctx.GuildID, ctx.Interaction.ChannelID, st.MessageID, embed); err != nil {
		return c.mutationError(err, errUnknownUpdate)
	}

	return ctx.Responder.Success(ctx.Interaction, "Menu Updated!")
}

// mutationError maps mutator failures onto their user-facing texts.
func (c *Commands) mutationError(err error, fallback string) error {
	switch {
	case errors.Is(err, component.ErrTreeFull):
		return core.NewCommandError(errMenuFull, true)
	case errors.Is(err, menu.ErrMessageNotTracked):
		return core.NewCommandError(errNeedCreateMenu, true)
	case errors.Is(err, menu.ErrMessageMissing):
		return core.NewCommandError(errMessageMissing, true)
	case errors.Is(err, menu.ErrCredentialExpired):
		return core.NewCommandError(errWebhookDeleted, true)
	default:
		return core.NewCommandError(fallback, true)
	}
}

// webhookFetchError maps a failed webhook message fetch, cascading the
// channel record when the webhook itself is gone.
func (c *Commands) webhookFetchError(ctx *core.Context, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage:
			return core.NewCommandError(errMessageMissing, true)
		case discordgo.ErrCodeUnknownWebhook:
			if delErr := c.store.DeleteMenu(ctx.GuildID, ctx.Interaction.ChannelID); delErr != nil {
				ctx.Logger.ErrorWithErr("Failed to delete stale menu record", delErr)
			}
			return core.NewCommandError(errWebhookDeleted, true)
		}
	}
	ctx.Logger.ErrorWithErr("Failed to fetch menu message", err)
	return core.NewCommandError(errUnknown, true)
}

func (c *Commands) toggleError(err error) error {
	if errors.Is(err, roles.ErrPermissionDenied) {
		return core.NewCommandError(errRolePermission, true)
	}
	return core.NewCommandError(errUnknown, true)
}

func toggleMessage(action roles.Action, roleID string) string {
	if action == roles.ActionGranted {
		return fmt.Sprintf("You now have the <@&%s> role!", roleID)
	}
	return fmt.Sprintf("You no longer have the <@&%s> role!", roleID)
}
