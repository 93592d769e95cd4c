package document

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"collaborative-document-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// DocumentRepository is the versioned document store. CompareAndSwap is the
// only way a document's fields change after creation.
type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
	// FindByID returns soft-deleted documents too; callers decide visibility.
	FindByID(ctx context.Context, id string) (domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.Document, error)
	// CompareAndSwap applies patch and bumps the version by one only if the
	// stored version equals expectedVersion, as one indivisible step.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (domain.Document, error)
	// SoftDelete marks the document deleted. Deleting twice is a no-op.
	SoftDelete(ctx context.Context, id string) (domain.Document, error)
}

// ClampPagination forces page >= 1 and limit into [1, MaxLimit].
func ClampPagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// prepareCreate fills the store-owned fields of a new document.
func prepareCreate(doc domain.Document, now time.Time) domain.Document {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = 1
	doc.IsDeleted = false
	doc.SharedWith = domain.NormalizeShared(doc.OwnerID, doc.SharedWith)
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc
}

type DocumentRepositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a postgres-backed document store
func NewRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	doc = prepareCreate(doc, r.now())
	row := toRow(doc)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}
	return row.toDomain(), nil
}

func (r *DocumentRepositoryImpl) FindByID(ctx context.Context, id string) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, domain.ErrNotFound
	}

	var row Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *DocumentRepositoryImpl) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.Document, error) {
	page, limit = ClampPagination(page, limit)

	var rows []Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", ownerID, err)
	}

	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDomain())
	}
	return docs, nil
}

// CompareAndSwap issues a single conditional UPDATE ... WHERE version = expected
// RETURNING *, so the comparison and the write happen inside one statement.
func (r *DocumentRepositoryImpl) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, patch domain.Patch) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, domain.ErrNotFound
	}

	updates := map[string]any{
		"version":    expectedVersion + 1,
		"updated_at": r.now(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.SharedWith != nil {
		updates["shared_with"] = SharedList(*patch.SharedWith)
	}

	var rows []Document
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ? AND version = ? AND is_deleted = ?", id, expectedVersion, false).
		Updates(updates)
	if res.Error != nil {
		return domain.Document{}, fmt.Errorf("update document %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 && len(rows) == 1 {
		return rows[0].toDomain(), nil
	}

	return domain.Document{}, r.missReason(ctx, id)
}

// missReason tells a missing or deleted document apart from a stale version
// after a conditional write matched nothing.
func (r *DocumentRepositoryImpl) missReason(ctx context.Context, id string) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsDeleted {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}

func (r *DocumentRepositoryImpl) SoftDelete(ctx context.Context, id string) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, domain.ErrNotFound
	}

	var rows []Document
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "updated_at": r.now()})
	if res.Error != nil {
		return domain.Document{}, fmt.Errorf("delete document %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 && len(rows) == 1 {
		return rows[0].toDomain(), nil
	}

	// Already deleted, or absent.
	return r.FindByID(ctx, id)
}

var _ DocumentRepository = (*DocumentRepositoryImpl)(nil)
