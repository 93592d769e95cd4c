package document

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"collaborative-document-service/internal/domain"
)

// SharedList is the sharedWith set stored as a jsonb column.
type SharedList []domain.SharedEntry

func (l SharedList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *SharedList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*l = SharedList{}
		return nil
	default:
		return fmt.Errorf("scan shared_with: unsupported type %T", src)
	}
	return json.Unmarshal(raw, l)
}

type Document struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	Title      string     `gorm:"not null"`
	Content    string     `gorm:"type:text;not null"`
	OwnerID    string     `gorm:"not null;index:idx_documents_owner_created,priority:1"`
	SharedWith SharedList `gorm:"type:jsonb;not null"`
	IsDeleted  bool       `gorm:"not null;index"`
	Version    int64      `gorm:"not null"`
	CreatedAt  time.Time  `gorm:"index:idx_documents_owner_created,priority:2,sort:desc"`
	UpdatedAt  time.Time
}

func (Document) TableName() string {
	return "documents"
}

func toRow(d domain.Document) Document {
	return Document{
		ID:         d.ID,
		Title:      d.Title,
		Content:    d.Content,
		OwnerID:    d.OwnerID,
		SharedWith: SharedList(d.SharedWith),
		IsDeleted:  d.IsDeleted,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r Document) toDomain() domain.Document {
	shared := []domain.SharedEntry(r.SharedWith)
	if shared == nil {
		shared = []domain.SharedEntry{}
	}
	return domain.Document{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		OwnerID:    r.OwnerID,
		SharedWith: shared,
		IsDeleted:  r.IsDeleted,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
