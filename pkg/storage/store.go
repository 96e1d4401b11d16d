package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "modernc.org/sqlite"
)

// Store wraps an embedded SQLite database holding each guild's menu records,
// operator secrets and externally stored component state. It uses
// modernc.org/sqlite for CGO-less builds.
//
// Every mutation is a targeted statement (or transaction) against exactly
// the changed rows, so concurrent writers touching unrelated fields cannot
// clobber each other. Rows themselves are last-writer-wins.
type Store struct {
	dbPath string
	db     *sql.DB

	// Referenced component state is immutable once written, which makes it
	// safe to front with an in-memory TTL cache.
	states *expirable.LRU[string, StateRecord]
}

const stateCacheSize = 1024

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{
		dbPath: dbPath,
		states: expirable.NewLRU[string, StateRecord](stateCacheSize, nil, 5*time.Minute),
	}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("enable FKs: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set synchronous: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS menus (
            guild_id TEXT NOT NULL,
            channel_id TEXT NOT NULL,
            webhook_id TEXT NOT NULL,
            webhook_token TEXT NOT NULL,
            latest_message_id TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (guild_id, channel_id)
        )`,
		`CREATE TABLE IF NOT EXISTS menu_messages (
            guild_id TEXT NOT NULL,
            channel_id TEXT NOT NULL,
            message_id TEXT NOT NULL,
            components TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL,
            PRIMARY KEY (guild_id, message_id),
            FOREIGN KEY (guild_id, channel_id) REFERENCES menus(guild_id, channel_id) ON DELETE CASCADE
        )`,
		`CREATE INDEX IF NOT EXISTS idx_menu_messages_channel ON menu_messages(guild_id, channel_id)`,
		`CREATE TABLE IF NOT EXISTS secrets (
            id TEXT PRIMARY KEY,
            guild_id TEXT NOT NULL,
            role_id TEXT NOT NULL,
            text TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS component_state (
            ref_id TEXT PRIMARY KEY,
            handler_id TEXT NOT NULL,
            payload TEXT NOT NULL,
            expires_at TIMESTAMP
        )`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// MenuRecord is a channel's mutation credential plus its tracked messages'
// serialized component trees. Messages maps message id to tree JSON.
type MenuRecord struct {
	GuildID         string
	ChannelID       string
	WebhookID       string
	WebhookToken    string
	LatestMessageID string
	Messages        map[string]string
}

// UpsertMenu inserts or replaces a channel's mutation credential.
func (s *Store) UpsertMenu(guildID, channelID, webhookID, webhookToken string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(
		`INSERT INTO menus (guild_id, channel_id, webhook_id, webhook_token)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(guild_id, channel_id) DO UPDATE SET
           webhook_id=excluded.webhook_id,
           webhook_token=excluded.webhook_token`,
		guildID, channelID, webhookID, webhookToken,
	)
	return err
}

// GetMenu loads a channel's menu record with all tracked messages; nil if the
// channel has none.
func (s *Store) GetMenu(guildID, channelID string) (*MenuRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	row := s.db.QueryRow(
		`SELECT guild_id, channel_id, webhook_id, webhook_token, latest_message_id
         FROM menus WHERE guild_id=? AND channel_id=?`,
		guildID, channelID,
	)

	rec := MenuRecord{Messages: make(map[string]string)}
	if err := row.Scan(&rec.GuildID, &rec.ChannelID, &rec.WebhookID, &rec.WebhookToken, &rec.LatestMessageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT message_id, components FROM menu_messages WHERE guild_id=? AND channel_id=?`,
		guildID, channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var messageID, components string
		if err := rows.Scan(&messageID, &components); err != nil {
			return nil, err
		}
		rec.Messages[messageID] = components
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TrackMessage records a newly published menu message and marks it latest.
func (s *Store) TrackMessage(guildID, channelID, messageID, components string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(
		`INSERT INTO menu_messages (guild_id, channel_id, message_id, components, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(guild_id, message_id) DO UPDATE SET
           components=excluded.components`,
		guildID, channelID, messageID, components, time.Now().UTC(),
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE menus SET latest_message_id=? WHERE guild_id=? AND channel_id=?`,
		messageID, guildID, channelID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateMessageComponents writes through a message's serialized component
// tree after a successful remote edit.
func (s *Store) UpdateMessageComponents(guildID, messageID, components string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(
		`UPDATE menu_messages SET components=? WHERE guild_id=? AND message_id=?`,
		components, guildID, messageID,
	)
	return err
}

// DeleteMenu removes a channel's menu record and, via FK cascade, every
// tracked message under it. Used when the channel's webhook is confirmed
// gone; republishing is the only recovery.
func (s *Store) DeleteMenu(guildID, channelID string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(`DELETE FROM menus WHERE guild_id=? AND channel_id=?`, guildID, channelID)
	return err
}

// SecretRecord is an operator-defined secret gating a role button. The role
// id is stored alongside so a reference token needs only the secret's id.
type SecretRecord struct {
	ID        string
	GuildID   string
	RoleID    string
	Text      string
	CreatedAt time.Time
}

// CreateSecret stores a new secret.
func (s *Store) CreateSecret(rec SecretRecord) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO secrets (id, guild_id, role_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.GuildID, rec.RoleID, rec.Text, rec.CreatedAt.UTC(),
	)
	return err
}

// GetSecret returns a secret by id; nil if absent.
func (s *Store) GetSecret(id string) (*SecretRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	row := s.db.QueryRow(`SELECT id, guild_id, role_id, text, created_at FROM secrets WHERE id=?`, id)
	var rec SecretRecord
	if err := row.Scan(&rec.ID, &rec.GuildID, &rec.RoleID, &rec.Text, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteSecret removes a secret (no error if absent).
func (s *Store) DeleteSecret(id string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(`DELETE FROM secrets WHERE id=?`, id)
	return err
}

// StateRecord is an externally stored component state payload, addressed by
// the reference id embedded in a token. Payloads are immutable once written.
type StateRecord struct {
	RefID     string
	HandlerID string
	Payload   json.RawMessage
	ExpiresAt time.Time
	HasExpiry bool
}

// PutState stores a referenced payload.
func (s *Store) PutState(rec StateRecord) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	var expires any
	if rec.HasExpiry {
		expires = rec.ExpiresAt.UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO component_state (ref_id, handler_id, payload, expires_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(ref_id) DO NOTHING`,
		rec.RefID, rec.HandlerID, []byte(rec.Payload), expires,
	)
	return err
}

// GetState returns a non-expired referenced payload; nil if absent or expired.
func (s *Store) GetState(refID string) (*StateRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	if cached, ok := s.states.Get(refID); ok {
		rec := cached
		return &rec, nil
	}

	row := s.db.QueryRow(
		`SELECT ref_id, handler_id, payload, expires_at FROM component_state
         WHERE ref_id=? AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`,
		refID,
	)
	var rec StateRecord
	var payload []byte
	var expires sql.NullTime
	if err := row.Scan(&rec.RefID, &rec.HandlerID, &payload, &expires); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.Payload = json.RawMessage(payload)
	if expires.Valid {
		rec.HasExpiry = true
		rec.ExpiresAt = expires.Time
	}

	s.states.Add(refID, rec)
	return &rec, nil
}

// CleanupExpiredStates deletes all expired referenced payloads.
func (s *Store) CleanupExpiredStates() error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(`DELETE FROM component_state WHERE expires_at IS NOT NULL AND expires_at <= CURRENT_TIMESTAMP`)
	return err
}
