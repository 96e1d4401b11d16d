package session

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// NewDiscordSession creates and opens a gateway session. The bot only
// reacts to interactions and guild metadata, so the guilds intent is all
// it asks for.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds

	log.Info("Connecting to Discord...")
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf(ErrSessionConnectionFailed, err)
	}

	log.Info("Connected to Discord")
	return s, nil
}
