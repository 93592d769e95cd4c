package history

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"collaborative-document-service/internal/domain"
)

// Changes is the field delta stored as a jsonb column.
type Changes map[string]any

func (c Changes) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *Changes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*c = Changes{}
		return nil
	default:
		return fmt.Errorf("scan changes: unsupported type %T", src)
	}
	return json.Unmarshal(raw, c)
}

type EditHistory struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	DocumentID      string  `gorm:"type:uuid;not null;uniqueIndex:idx_edit_history_document_version"`
	UserID          string  `gorm:"not null"`
	Changes         Changes `gorm:"type:jsonb;not null"`
	PreviousVersion int64   `gorm:"not null"`
	Version         int64   `gorm:"not null;uniqueIndex:idx_edit_history_document_version"`
	CreatedAt       time.Time
}

func (EditHistory) TableName() string {
	return "edit_histories"
}

func toRow(r domain.EditHistoryRecord) EditHistory {
	return EditHistory{
		ID:              r.ID,
		DocumentID:      r.DocumentID,
		UserID:          r.UserID,
		Changes:         Changes(r.Changes),
		PreviousVersion: r.PreviousVersion,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
	}
}

func (e EditHistory) toDomain() domain.EditHistoryRecord {
	return domain.EditHistoryRecord{
		ID:              e.ID,
		DocumentID:      e.DocumentID,
		UserID:          e.UserID,
		Changes:         map[string]any(e.Changes),
		PreviousVersion: e.PreviousVersion,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
	}
}
