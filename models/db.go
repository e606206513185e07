package models

import "time"

type Conversation struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type EntryRow struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	Seq            int       `db:"seq" json:"seq"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (r EntryRow) ToEntry() Entry {
	return Entry{Role: Role(r.Role), Content: r.Content}
}

func RowsToEntries(rows []EntryRow) []Entry {
	resp := make([]Entry, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, r.ToEntry())
	}
	return resp
}
