package menu

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

type fakePublishStore struct {
	menus   map[string]*storage.MenuRecord
	tracked []string
	deletes int
}

func newFakePublishStore() *fakePublishStore {
	return &fakePublishStore{menus: make(map[string]*storage.MenuRecord)}
}

func (f *fakePublishStore) GetMenu(guildID, channelID string) (*storage.MenuRecord, error) {
	return f.menus[guildID+"/"+channelID], nil
}

func (f *fakePublishStore) UpsertMenu(guildID, channelID, webhookID, webhookToken string) error {
	f.menus[guildID+"/"+channelID] = &storage.MenuRecord{
		GuildID:      guildID,
		ChannelID:    channelID,
		WebhookID:    webhookID,
		WebhookToken: webhookToken,
	}
	return nil
}

func (f *fakePublishStore) TrackMessage(guildID, channelID, messageID, components string) error {
	f.tracked = append(f.tracked, messageID)
	return nil
}

func (f *fakePublishStore) DeleteMenu(guildID, channelID string) error {
	delete(f.menus, guildID+"/"+channelID)
	f.deletes++
	return nil
}

type fakeWebhookClient struct {
	creates    int
	executes   int
	lastID     string
	lastToken  string
	executeErr error
	failID     string
}

func (f *fakeWebhookClient) WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.creates++
	return &discordgo.Webhook{ID: "wh1", Token: "tok1"}, nil
}

func (f *fakeWebhookClient) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.executes++
	f.lastID, f.lastToken = webhookID, token
	if f.failID != "" && webhookID == f.failID {
		return nil, restError(discordgo.ErrCodeUnknownWebhook)
	}
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if !wait {
		return nil, errors.New("publish requires wait=true to learn the message id")
	}
	return &discordgo.Message{ID: "m1"}, nil
}

func TestPublishCreatesWebhookOnFirstMenu(t *testing.T) {
	t.Parallel()

	store := newFakePublishStore()
	client := &fakeWebhookClient{}
	p := NewPublisher(store, client, log.Default())

	messageID, err := p.Publish("g1", "c1", &discordgo.MessageEmbed{Title: "Roles"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if messageID != "m1" {
		t.Fatalf("message id mismatch: got %q", messageID)
	}
	if client.creates != 1 {
		t.Fatalf("webhook create count mismatch: got %d", client.creates)
	}
	if rec := store.menus["g1/c1"]; rec == nil || rec.WebhookID != "wh1" {
		t.Fatalf("credential not persisted: %+v", rec)
	}
	if len(store.tracked) != 1 || store.tracked[0] != "m1" {
		t.Fatalf("message not tracked: %v", store.tracked)
	}
}

func TestPublishReusesExistingWebhook(t *testing.T) {
	t.Parallel()

	store := newFakePublishStore()
	store.menus["g1/c1"] = &storage.MenuRecord{
		GuildID: "g1", ChannelID: "c1", WebhookID: "existing", WebhookToken: "tok",
	}
	client := &fakeWebhookClient{}
	p := NewPublisher(store, client, log.Default())

	if _, err := p.Publish("g1", "c1", &discordgo.MessageEmbed{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if client.creates != 0 {
		t.Fatal("created a webhook despite an existing credential")
	}
	if client.lastID != "existing" || client.lastToken != "tok" {
		t.Fatalf("executed wrong credential: %s/%s", client.lastID, client.lastToken)
	}
}

func TestPublishReplacesDeadWebhook(t *testing.T) {
	t.Parallel()

	store := newFakePublishStore()
	store.menus["g1/c1"] = &storage.MenuRecord{
		GuildID: "g1", ChannelID: "c1", WebhookID: "dead", WebhookToken: "tok",
	}
	client := &fakeWebhookClient{failID: "dead"}
	p := NewPublisher(store, client, log.Default())

	messageID, err := p.Publish("g1", "c1", &discordgo.MessageEmbed{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if messageID != "m1" {
		t.Fatalf("message id mismatch: got %q", messageID)
	}
	if store.deletes != 1 {
		t.Fatalf("stale record not dropped: deletes=%d", store.deletes)
	}
	if client.creates != 1 {
		t.Fatalf("fresh webhook not created: creates=%d", client.creates)
	}
	if client.lastID != "wh1" {
		t.Fatalf("retry used wrong credential: %q", client.lastID)
	}
	if rec := store.menus["g1/c1"]; rec == nil || rec.WebhookID != "wh1" {
		t.Fatalf("fresh credential not persisted: %+v", rec)
	}
	if len(store.tracked) != 1 || store.tracked[0] != "m1" {
		t.Fatalf("message not tracked: %v", store.tracked)
	}
}

func TestPublishFreshWebhookFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	store := newFakePublishStore()
	client := &fakeWebhookClient{failID: "wh1"}
	p := NewPublisher(store, client, log.Default())

	if _, err := p.Publish("g1", "c1", &discordgo.MessageEmbed{}); err == nil {
		t.Fatal("expected error")
	}
	if client.creates != 1 || client.executes != 1 {
		t.Fatalf("unexpected retry: creates=%d executes=%d", client.creates, client.executes)
	}
	if len(store.tracked) != 0 {
		t.Fatalf("tracked a message despite failure: %v", store.tracked)
	}
}

func TestPublishExecuteFailureTracksNothing(t *testing.T) {
	t.Parallel()

	store := newFakePublishStore()
	client := &fakeWebhookClient{executeErr: errors.New("boom")}
	p := NewPublisher(store, client, log.Default())

	if _, err := p.Publish("g1", "c1", &discordgo.MessageEmbed{}); err == nil {
		t.Fatal("expected error")
	}
	if len(store.tracked) != 0 {
		t.Fatalf("tracked a message despite failure: %v", store.tracked)
	}
}
