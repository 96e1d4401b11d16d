package menu

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

// webhookName is the display name for menu webhooks the bot creates.
const webhookName = "Easy Roles"

// PublishStore is the slice of persistence the publisher needs.
type PublishStore interface {
	GetMenu(guildID, channelID string) (*storage.MenuRecord, error)
	UpsertMenu(guildID, channelID, webhookID, webhookToken string) error
	TrackMessage(guildID, channelID, messageID, components string) error
	DeleteMenu(guildID, channelID string) error
}

// WebhookClient creates channel webhooks and executes them.
// *discordgo.Session satisfies it.
type WebhookClient interface {
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Publisher runs the publish flow: ensure the channel has a mutation
// credential (reusing an existing one when present), execute it with the menu
// embed, and track the resulting message as latest.
type Publisher struct {
	store  PublishStore
	client WebhookClient
	logger *log.Logger
}

// NewPublisher creates a publisher over the given store and webhook client.
func NewPublisher(store PublishStore, client WebhookClient, logger *log.Logger) *Publisher {
	return &Publisher{store: store, client: client, logger: logger}
}

// Publish sends a fresh menu message to the channel and returns its id.
// A reused credential that turns out to be dead (webhook deleted
// out-of-band) is logged, cascade-deleted and replaced with a fresh one
// before a single retry.
func (p *Publisher) Publish(guildID, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	rec, err := p.store.GetMenu(guildID, channelID)
	if err != nil {
		return "", fmt.Errorf("menu: load record: %w", err)
	}

	var webhookID, webhookToken string
	reused := rec != nil
	if reused {
		webhookID, webhookToken = rec.WebhookID, rec.WebhookToken
	} else {
		webhookID, webhookToken, err = p.createWebhook(guildID, channelID)
		if err != nil {
			return "", err
		}
	}

	message, err := p.execute(webhookID, webhookToken, embed)
	if err != nil {
		if !reused || restErrorCode(err) != discordgo.ErrCodeUnknownWebhook {
			return "", fmt.Errorf("menu: execute webhook: %w", err)
		}

		p.logger.WithFields(map[string]any{
			"guild_id":   guildID,
			"channel_id": channelID,
		}).Warn("Webhook gone; dropping channel menu record")
		if delErr := p.store.DeleteMenu(guildID, channelID); delErr != nil {
			return "", fmt.Errorf("menu: drop stale record: %w", delErr)
		}

		webhookID, webhookToken, err = p.createWebhook(guildID, channelID)
		if err != nil {
			return "", err
		}
		message, err = p.execute(webhookID, webhookToken, embed)
		if err != nil {
			return "", fmt.Errorf("menu: execute webhook: %w", err)
		}
	}

	if err := p.store.TrackMessage(guildID, channelID, message.ID, ""); err != nil {
		return "", fmt.Errorf("menu: track message: %w", err)
	}
	return message.ID, nil
}

func (p *Publisher) createWebhook(guildID, channelID string) (string, string, error) {
	webhook, err := p.client.WebhookCreate(channelID, webhookName, "")
	if err != nil {
		return "", "", fmt.Errorf("menu: create webhook: %w", err)
	}
	if err := p.store.UpsertMenu(guildID, channelID, webhook.ID, webhook.Token); err != nil {
		return "", "", fmt.Errorf("menu: persist credential: %w", err)
	}
	p.logger.WithFields(map[string]any{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Info("Created menu webhook")
	return webhook.ID, webhook.Token, nil
}

func (p *Publisher) execute(webhookID, webhookToken string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return p.client.WebhookExecute(webhookID, webhookToken, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}
