package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voxchat/models"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("conversation not found")

type ConversationHistory interface {
	CreateConversation(name string) (*models.Conversation, error)
	ListConversations() ([]models.Conversation, error)
	GetConversation(id string) (*models.Conversation, error)
	LastConversation() (*models.Conversation, error)
	RemoveConversation(id string) error
	AppendEntry(conversationID string, e models.Entry) (*models.EntryRow, error)
	GetEntries(conversationID string) ([]models.EntryRow, error)
}

type ProviderSQL struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewProviderSQL(dbPath string, logger *slog.Logger) (*ProviderSQL, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db %s: %w", dbPath, err)
	}
	// a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	var version string
	if err := db.Get(&version, "select sqlite_version()"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach db %s: %w", dbPath, err)
	}
	logger.Debug("opened db", "path", dbPath, "sqlite_version", version)
	p := &ProviderSQL{db: db, logger: logger}
	if err := p.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *ProviderSQL) Close() error {
	return p.db.Close()
}

func (p *ProviderSQL) CreateConversation(name string) (*models.Conversation, error) {
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if conv.Name == "" {
		conv.Name = "conversation-" + now.Format("2006-01-02-15-04-05")
	}
	query := `
        INSERT INTO conversations (id, name, created_at, updated_at)
        VALUES (:id, :name, :created_at, :updated_at);`
	if _, err := p.db.NamedExec(query, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (p *ProviderSQL) ListConversations() ([]models.Conversation, error) {
	resp := []models.Conversation{}
	err := p.db.Select(&resp, "SELECT * FROM conversations ORDER BY updated_at DESC;")
	return resp, err
}

func (p *ProviderSQL) GetConversation(id string) (*models.Conversation, error) {
	resp := models.Conversation{}
	err := p.db.Get(&resp, "SELECT * FROM conversations WHERE id = ?;", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LastConversation is the most recently updated conversation.
func (p *ProviderSQL) LastConversation() (*models.Conversation, error) {
	resp := models.Conversation{}
	err := p.db.Get(&resp, "SELECT * FROM conversations ORDER BY updated_at DESC LIMIT 1;")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *ProviderSQL) RemoveConversation(id string) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck
	if _, err := tx.Exec("DELETE FROM entries WHERE conversation_id = ?;", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM conversations WHERE id = ?;", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
