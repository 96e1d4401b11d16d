package selfrole

import (
	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/discord/commands/core"
)

// PingState flips between Ping! and Pong! on each click.
type PingState struct {
	Ping bool `json:"p"`
}

func (c *Commands) registerMiscCommands() {
	c.router.RegisterCommand(core.NewSimpleCommand(
		"ping",
		"Simple ping command.",
		nil,
		c.handlePing,
		false, false,
	))

	c.router.RegisterCommand(core.NewSimpleCommand(
		"help",
		"A list of the bot's commands.",
		nil,
		c.handleHelp,
		false, false,
	))

	c.router.RegisterCommand(core.NewSimpleCommand(
		"about",
		"Information about the bot.",
		nil,
		c.handleAbout,
		false, false,
	))

	c.router.RegisterComponent(handlerPong, c.handlePong)
}

func (c *Commands) handlePing(ctx *core.Context) error {
	row, err := c.pongRow(PingState{Ping: false})
	if err != nil {
		return err
	}
	return ctx.Responder.Embed(ctx.Interaction, &discordgo.MessageEmbed{Title: "Pong!"}, false, row)
}

func (c *Commands) handlePong(ctx *core.ComponentContext) error {
	var st PingState
	if err := ctx.BindState(&st); err != nil {
		return err
	}

	title := "Ping!"
	if st.Ping {
		title = "Pong!"
	}

	row, err := c.pongRow(PingState{Ping: !st.Ping})
	if err != nil {
		return err
	}
	return ctx.Responder.Embed(ctx.Interaction, &discordgo.MessageEmbed{Title: title}, false, row)
}

func (c *Commands) pongRow(next PingState) (discordgo.ActionsRow, error) {
	token, err := c.router.EncodeState(handlerPong, next, 0)
	if err != nil {
		return discordgo.ActionsRow{}, err
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Style:    discordgo.PrimaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: "🏓"},
			CustomID: token,
		},
	}}, nil
}

func (c *Commands) handleHelp(ctx *core.Context) error {
	return ctx.Responder.Embed(ctx.Interaction, &discordgo.MessageEmbed{
		Title: "Help",
		Description: "**/create-menu** - Create a Self-Role menu in the current channel.\n" +
			"**/create-role-button** - Add a role button to your most recent menu.\n" +
			"**/edit-menu** - Edit your most recent menu's embed.\n" +
			"**/avatar** - Get a user's avatar.\n" +
			"**/ping** - Check that the bot is alive.",
	}, true)
}

func (c *Commands) handleAbout(ctx *core.Context) error {
	return ctx.Responder.Embed(ctx.Interaction, &discordgo.MessageEmbed{
		Title:       "Easy Roles",
		Description: "A simple bot for creating self-assignable role buttons, with optional secret keys.",
	}, true)
}
