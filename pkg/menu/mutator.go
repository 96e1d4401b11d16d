package menu

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/component"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

var (
	// ErrMessageNotTracked means the target message has no local record; the
	// publish flow has to run first.
	ErrMessageNotTracked = errors.New("menu: message not tracked")

	// ErrMessageMissing means the remote message is gone (deleted
	// out-of-band). Local state is left untouched.
	ErrMessageMissing = errors.New("menu: remote message missing")

	// ErrCredentialExpired means the channel's webhook is gone. The whole
	// channel record is cascade-deleted; republishing is the only recovery.
	ErrCredentialExpired = errors.New("menu: mutation credential expired")

	// ErrMutationFailed covers any other remote edit failure.
	ErrMutationFailed = errors.New("menu: mutation failed")
)

// RecordStore is the slice of persistence the mutator needs.
type RecordStore interface {
	GetMenu(guildID, channelID string) (*storage.MenuRecord, error)
	UpdateMessageComponents(guildID, messageID, components string) error
	DeleteMenu(guildID, channelID string) error
}

// Editor issues the remote webhook message edit. *discordgo.Session
// satisfies it.
type Editor interface {
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Mutator orchestrates edits against previously published menu messages.
//
// Edits are fetch-less and last-writer-wins: the locally persisted component
// tree is transformed in memory and pushed wholesale, with no prior remote
// read. The inconsistency window this opens is accepted; see the remote
// error classification for how dead credentials are repaired.
type Mutator struct {
	store  RecordStore
	editor Editor
	logger *log.Logger
}

// NewMutator creates a mutator over the given store and editor.
func NewMutator(store RecordStore, editor Editor, logger *log.Logger) *Mutator {
	return &Mutator{store: store, editor: editor, logger: logger}
}

// BuildControl constructs the control once its ordinal is known; the ordinal
// is embedded in the control's state payload for ordering-sensitive handlers.
type BuildControl func(ordinal int) (component.Control, error)

// AppendControl allocates a new control into the channel's latest menu
// message, edits the remote message, and writes the new tree through on
// success. Returns the ordinal assigned to the control.
func (m *Mutator) AppendControl(guildID, channelID string, build BuildControl) (int, error) {
	rec, err := m.store.GetMenu(guildID, channelID)
	if err != nil {
		return 0, fmt.Errorf("menu: load record: %w", err)
	}
	if rec == nil || rec.LatestMessageID == "" {
		return 0, ErrMessageNotTracked
	}
	messageID := rec.LatestMessageID

	serialized, tracked := rec.Messages[messageID]
	if !tracked {
		return 0, ErrMessageNotTracked
	}
	tree, err := component.ParseTree(serialized)
	if err != nil {
		return 0, err
	}

	ordinal, err := tree.NextSlot(component.KindButton)
	if err != nil {
		return 0, err
	}
	ctrl, err := build(ordinal)
	if err != nil {
		return 0, err
	}
	next, assigned, err := tree.Allocate(ctrl)
	if err != nil {
		return 0, err
	}
	if assigned != ordinal {
		// The tree changed between planning and allocation; should be
		// impossible on a value snapshot.
		return 0, fmt.Errorf("menu: ordinal drift: planned %d assigned %d", ordinal, assigned)
	}

	components := next.MessageComponents()
	_, err = m.editor.WebhookMessageEdit(rec.WebhookID, rec.WebhookToken, messageID, &discordgo.WebhookEdit{
		Components: &components,
	})
	if err != nil {
		return 0, m.classify(err, guildID, channelID, messageID)
	}

	updated, err := next.Marshal()
	if err != nil {
		return 0, err
	}
	if err := m.store.UpdateMessageComponents(guildID, messageID, updated); err != nil {
		return 0, fmt.Errorf("menu: persist components: %w", err)
	}
	return ordinal, nil
}

// ReplaceEmbed swaps the embed of a tracked menu message, leaving its
// component tree untouched. The tracking precondition is re-validated here
// rather than trusted from any earlier read.
func (m *Mutator) ReplaceEmbed(guildID, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	rec, err := m.store.GetMenu(guildID, channelID)
	if err != nil {
		return fmt.Errorf("menu: load record: %w", err)
	}
	if rec == nil {
		return ErrMessageNotTracked
	}
	if _, tracked := rec.Messages[messageID]; !tracked {
		return ErrMessageNotTracked
	}

	embeds := []*discordgo.MessageEmbed{embed}
	_, err = m.editor.WebhookMessageEdit(rec.WebhookID, rec.WebhookToken, messageID, &discordgo.WebhookEdit{
		Embeds: &embeds,
	})
	if err != nil {
		return m.classify(err, guildID, channelID, messageID)
	}
	return nil
}

// classify maps a remote edit failure onto the mutator's error taxonomy.
// Credential expiry is the one path with a local side effect: the channel's
// record is deleted so future edits fail fast with ErrMessageNotTracked.
func (m *Mutator) classify(err error, guildID, channelID, messageID string) error {
	switch restErrorCode(err) {
	case discordgo.ErrCodeUnknownMessage:
		return ErrMessageMissing
	case discordgo.ErrCodeUnknownWebhook:
		m.logger.WithFields(map[string]any{
			"guild_id":   guildID,
			"channel_id": channelID,
		}).Warn("Webhook gone; dropping channel menu record")
		if delErr := m.store.DeleteMenu(guildID, channelID); delErr != nil {
			m.logger.WithField("channel_id", channelID).ErrorWithErr("Failed to drop menu record", delErr)
		}
		return ErrCredentialExpired
	default:
		m.logger.WithFields(map[string]any{
			"guild_id":   guildID,
			"channel_id": channelID,
			"message_id": messageID,
		}).ErrorWithErr("Menu edit failed", err)
		return fmt.Errorf("%w: %v", ErrMutationFailed, err)
	}
}

// restErrorCode extracts Discord's JSON error code from a REST failure, or 0.
func restErrorCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}
