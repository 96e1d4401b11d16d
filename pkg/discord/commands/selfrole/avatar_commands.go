package selfrole

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/discord/commands/core"
	"github.com/ssMMiles/easy-roles/pkg/util"
)

// avatarNameLimit caps the display name carried in button state.
const avatarNameLimit = 15

// AvatarState is an avatar button's payload.
type AvatarState struct {
	Name    string `json:"n"`
	UserID  string `json:"u"`
	Avatar  string `json:"a"`
	GuildID string `json:"g,omitempty"`
}

// AvatarURL builds the CDN url for a user or guild avatar. Animated
// hashes carry an a_ prefix and resolve to gifs.
func AvatarURL(userID, avatar, guildID string) string {
	ext := ".png"
	if strings.HasPrefix(avatar, "a_") {
		ext = ".gif"
	}
	if guildID != "" {
		return fmt.Sprintf("https://cdn.discordapp.com/guilds/%s/users/%s/avatars/%s%s", guildID, userID, avatar, ext)
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s%s", userID, avatar, ext)
}

func (c *Commands) registerAvatarCommands() {
	c.router.RegisterCommand(core.NewSimpleCommand(
		"avatar",
		"Get a user's avatar.",
		[]*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user whose avatar you'd like to fetch.",
				Required:    true,
			},
		},
		c.handleAvatar,
		false, false,
	))

	c.router.RegisterComponent(handlerAvatarUser, c.handleAvatarUser)
	c.router.RegisterComponent(handlerAvatarGuild, c.handleAvatarGuild)
}

func (c *Commands) handleAvatar(ctx *core.Context) error {
	data := ctx.Interaction.ApplicationCommandData()
	opts := ctx.Options()

	userID := opts.UserID("user")
	var user *discordgo.User
	if data.Resolved != nil {
		user = data.Resolved.Users[userID]
	}
	if user == nil {
		return core.NewCommandError("User not found.", true)
	}

	name := user.Username
	avatar := user.Avatar
	server := false

	if data.Resolved != nil {
		if member := data.Resolved.Members[userID]; member != nil {
			if member.Nick != "" {
				name = member.Nick
			}
			if member.Avatar != "" {
				avatar = member.Avatar
				server = true
			}
		}
	}

	name = util.Truncate(name, avatarNameLimit)

	userToken, err := c.router.EncodeState(handlerAvatarUser, AvatarState{
		Name:   name,
		UserID: userID,
		Avatar: user.Avatar,
	}, avatarStateTTL)
	if err != nil {
		return err
	}

	guildButton := discordgo.Button{
		Label: "Show Server Avatar",
		Style: discordgo.PrimaryButton,
	}
	if server {
		token, err := c.router.EncodeState(handlerAvatarGuild, AvatarState{
			Name:    name,
			UserID:  userID,
			Avatar:  avatar,
			GuildID: ctx.GuildID,
		}, avatarStateTTL)
		if err != nil {
			return err
		}
		guildButton.CustomID = token
	} else {
		token, err := c.router.EncodeState(handlerAvatarGuild, struct{}{}, 0)
		if err != nil {
			return err
		}
		guildButton.CustomID = token
		guildButton.Disabled = true
	}

	guildID := ""
	if server {
		guildID = ctx.GuildID
	}

	return ctx.Responder.Embed(ctx.Interaction,
		avatarEmbed(name, userID, avatar, guildID),
		false,
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Show User Avatar",
				Style:    discordgo.PrimaryButton,
				CustomID: userToken,
			},
			guildButton,
		}},
	)
}

func (c *Commands) handleAvatarUser(ctx *core.ComponentContext) error {
	var st AvatarState
	if err := ctx.BindState(&st); err != nil {
		return err
	}
	if st.UserID == "" {
		return core.NewCommandError("Avatar unavailable.", true)
	}
	return ctx.Responder.Embed(ctx.Interaction, avatarEmbed(st.Name, st.UserID, st.Avatar, ""), false)
}

func (c *Commands) handleAvatarGuild(ctx *core.ComponentContext) error {
	var st AvatarState
	if err := ctx.BindState(&st); err != nil {
		return err
	}
	if st.UserID == "" {
		return core.NewCommandError("Avatar unavailable.", true)
	}
	return ctx.Responder.Embed(ctx.Interaction, avatarEmbed(st.Name, st.UserID, st.Avatar, st.GuildID), false)
}

func avatarEmbed(name, userID, avatar, guildID string) *discordgo.MessageEmbed {
	title := fmt.Sprintf("%s's Avatar", name)
	if guildID != "" {
		title = fmt.Sprintf("%s's Server Avatar", name)
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Image: &discordgo.MessageEmbedImage{URL: AvatarURL(userID, avatar, guildID)},
	}
}
