package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

type fakeStateStore struct {
	records map[string]storage.StateRecord
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{records: make(map[string]storage.StateRecord)}
}

func (f *fakeStateStore) PutState(rec storage.StateRecord) error {
	f.records[rec.RefID] = rec
	return nil
}

func (f *fakeStateStore) GetState(refID string) (*storage.StateRecord, error) {
	rec, ok := f.records[refID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func TestEncodeStateSmallPayloadStaysInline(t *testing.T) {
	t.Parallel()

	states := newFakeStateStore()
	r := NewRouter(nil, states, log.Default())

	token, err := r.EncodeState("role-toggle", map[string]string{"r": "42"}, 0)
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}

	decoded, err := component.Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.IsReference() {
		t.Fatal("small payload should be inline")
	}
	if len(states.records) != 0 {
		t.Fatal("inline payload must not touch the store")
	}
}

func TestEncodeStateLargePayloadFallsBackToReference(t *testing.T) {
	t.Parallel()

	states := newFakeStateStore()
	r := NewRouter(nil, states, log.Default())

	payload := map[string]string{"url": strings.Repeat("x", 200)}
	token, err := r.EncodeState("avatar-user", payload, time.Hour)
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}
	if len(token) > component.MaxTokenLen {
		t.Fatalf("token too long: %d", len(token))
	}

	decoded, err := component.Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !decoded.IsReference() {
		t.Fatal("oversized payload should be a reference")
	}

	rec, ok := states.records[decoded.RefID]
	if !ok {
		t.Fatal("reference payload not persisted")
	}
	if rec.HandlerID != "avatar-user" {
		t.Fatalf("handler id mismatch: got %q", rec.HandlerID)
	}
	if !rec.HasExpiry {
		t.Fatal("ttl was given but record has no expiry")
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Payload, &got); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if got["url"] != payload["url"] {
		t.Fatal("payload round trip mismatch")
	}
}

func TestReferenceStateDispatch(t *testing.T) {
	t.Parallel()

	store := storage.NewStore(t.TempDir() + "/state.db")
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r := NewRouter(nil, store, log.Default())

	want := map[string]string{"url": strings.Repeat("x", 200)}
	var got map[string]string
	r.RegisterComponent("avatar-user", func(ctx *ComponentContext) error {
		return ctx.BindState(&got)
	})

	token, err := r.EncodeState("avatar-user", want, time.Hour)
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data:    discordgo.MessageComponentInteractionData{CustomID: token},
	}}
	r.HandleInteraction(nil, i)

	if got["url"] != want["url"] {
		t.Fatal("stored payload did not reach the handler intact")
	}
}

func TestModalFieldsFlattensRows(t *testing.T) {
	t.Parallel()

	data := discordgo.ModalSubmitInteractionData{
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "secret", Value: "  swordfish  "},
			}},
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "title", Value: "Roles"},
			}},
		},
	}

	fields := ModalFields(data)
	if fields["secret"] != "swordfish" {
		t.Fatalf("secret field mismatch: got %q", fields["secret"])
	}
	if fields["title"] != "Roles" {
		t.Fatalf("title field mismatch: got %q", fields["title"])
	}
}

func TestInteractionUserID(t *testing.T) {
	t.Parallel()

	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}}
	if got := interactionUserID(guild); got != "u1" {
		t.Fatalf("member user id mismatch: got %q", got)
	}

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u2"},
	}}
	if got := interactionUserID(dm); got != "u2" {
		t.Fatalf("dm user id mismatch: got %q", got)
	}
}
