package storage

import (
	"time"

	"voxchat/models"
)

// AppendEntry stores e as the next entry of the conversation and bumps its
// updated_at.
func (p *ProviderSQL) AppendEntry(conversationID string, e models.Entry) (*models.EntryRow, error) {
	tx, err := p.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck
	now := time.Now().UTC()
	res, err := tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?;", now, conversationID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	row := &models.EntryRow{
		ConversationID: conversationID,
		Role:           string(e.Role),
		Content:        e.Content,
		CreatedAt:      now,
	}
	if err := tx.Get(&row.Seq, "SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE conversation_id = ?;", conversationID); err != nil {
		return nil, err
	}
	query := `
        INSERT INTO entries (conversation_id, seq, role, content, created_at)
        VALUES (:conversation_id, :seq, :role, :content, :created_at);`
	if _, err := tx.NamedExec(query, row); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return row, nil
}

// GetEntries returns the conversation log in append order.
func (p *ProviderSQL) GetEntries(conversationID string) ([]models.EntryRow, error) {
	resp := []models.EntryRow{}
	err := p.db.Select(&resp, "SELECT * FROM entries WHERE conversation_id = ? ORDER BY seq;", conversationID)
	return resp, err
}
