package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"collaborative-document-service/internal/domain"
)

// MemoryRepository is an in-process store. The mutex makes every
// compare-and-swap indivisible.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[string]*memoryEntry
	seq  uint64
	now  func() time.Time
}

type memoryEntry struct {
	doc domain.Document
	seq uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs: make(map[string]*memoryEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func copyDocument(d domain.Document) domain.Document {
	d.SharedWith = append([]domain.SharedEntry{}, d.SharedWith...)
	return d
}

func (r *MemoryRepository) Create(_ context.Context, doc domain.Document) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc = prepareCreate(doc, r.now())
	r.seq++
	r.docs[doc.ID] = &memoryEntry{doc: copyDocument(doc), seq: r.seq}
	return copyDocument(doc), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return copyDocument(entry.doc), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string, page, limit int) ([]domain.Document, error) {
	page, limit = ClampPagination(page, limit)

	r.mu.Lock()
	entries := make([]*memoryEntry, 0)
	for _, e := range r.docs {
		if e.doc.OwnerID == ownerID && !e.doc.IsDeleted {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].doc.CreatedAt.Equal(entries[j].doc.CreatedAt) {
			return entries[i].doc.CreatedAt.After(entries[j].doc.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})
	docs := make([]domain.Document, 0, limit)
	for i := (page - 1) * limit; i < len(entries) && len(docs) < limit; i++ {
		docs = append(docs, copyDocument(entries[i].doc))
	}
	r.mu.Unlock()

	return docs, nil
}

func (r *MemoryRepository) CompareAndSwap(_ context.Context, id string, expectedVersion int64, patch domain.Patch) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.docs[id]
	if !ok || entry.doc.IsDeleted {
		return domain.Document{}, domain.ErrNotFound
	}
	if entry.doc.Version != expectedVersion {
		return domain.Document{}, domain.ErrVersionConflict
	}

	next := patch.Apply(entry.doc)
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.now()
	entry.doc = copyDocument(next)
	return copyDocument(next), nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id string) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	if !entry.doc.IsDeleted {
		entry.doc.IsDeleted = true
		entry.doc.UpdatedAt = r.now()
	}
	return copyDocument(entry.doc), nil
}

var _ DocumentRepository = (*MemoryRepository)(nil)
