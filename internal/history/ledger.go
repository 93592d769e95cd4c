// Package history keeps the append-only record of accepted document mutations.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"collaborative-document-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ledger interface {
	Append(ctx context.Context, record domain.EditHistoryRecord) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.EditHistoryRecord, error)
}

func prepare(record *domain.EditHistoryRecord) error {
	if record.DocumentID == "" || record.UserID == "" {
		return fmt.Errorf("history record needs document and user")
	}
	if record.Version != record.PreviousVersion+1 {
		return fmt.Errorf("history record version %d does not follow %d", record.Version, record.PreviousVersion)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return nil
}

type LedgerImpl struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) Ledger {
	return &LedgerImpl{db: db}
}

// Append inserts one record. The (document_id, version) unique index rejects a
// second record for the same version.
func (l *LedgerImpl) Append(ctx context.Context, record domain.EditHistoryRecord) error {
	if err := prepare(&record); err != nil {
		return err
	}
	row := toRow(record)
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append history %s@%d: %w", record.DocumentID, record.Version, err)
	}
	return nil
}

func (l *LedgerImpl) ListByDocument(ctx context.Context, documentID string) ([]domain.EditHistoryRecord, error) {
	var rows []EditHistory
	err := l.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list history %s: %w", documentID, err)
	}

	records := make([]domain.EditHistoryRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// MemoryLedger keeps history in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string][]domain.EditHistoryRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string][]domain.EditHistoryRecord)}
}

func (l *MemoryLedger) Append(_ context.Context, record domain.EditHistoryRecord) error {
	if err := prepare(&record); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.records[record.DocumentID] {
		if existing.Version == record.Version {
			return fmt.Errorf("history for %s version %d already recorded", record.DocumentID, record.Version)
		}
	}
	l.records[record.DocumentID] = append(l.records[record.DocumentID], record)
	return nil
}

func (l *MemoryLedger) ListByDocument(_ context.Context, documentID string) ([]domain.EditHistoryRecord, error) {
	l.mu.RLock()
	records := append([]domain.EditHistoryRecord(nil), l.records[documentID]...)
	l.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Version < records[j].Version })
	return records, nil
}

var (
	_ Ledger = (*LedgerImpl)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
