package document

import (
	"context"
	"strings"
	"time"

	"collaborative-document-service/internal/access"
	"collaborative-document-service/internal/cache"
	"collaborative-document-service/internal/domain"
	"collaborative-document-service/internal/events"
	"collaborative-document-service/internal/history"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Service interface {
	CreateDocument(ctx context.Context, ownerID string, input CreateInput) (*domain.Document, error)
	GetDocument(ctx context.Context, docID, actorID string) (*domain.Document, error)
	GetUserDocuments(ctx context.Context, ownerID string, page, limit int) (*PaginatedDocuments, error)
	UpdateDocument(ctx context.Context, docID, actorID string, expectedVersion *int64, patch domain.Patch, channel access.Channel) (*domain.Document, error)
	DeleteDocument(ctx context.Context, docID, actorID string) (*domain.Document, error)
	GetDocumentHistory(ctx context.Context, docID, actorID string) ([]domain.EditHistoryRecord, error)
	// Snapshot is the canonical, uncached state of a live document.
	Snapshot(ctx context.Context, docID string) (*domain.Document, error)
}

// Notifier hears about deletions so live rooms can be closed.
type Notifier interface {
	DocumentDeleted(docID string)
}

type CreateInput struct {
	Title      string
	Content    string
	SharedWith []domain.SharedEntry
}

type PaginatedDocuments struct {
	Data []domain.Document `json:"data"`
	Meta DocumentsMeta     `json:"meta"`
}

type DocumentsMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

type Deps struct {
	Repository DocumentRepository
	Cache      *cache.Layer
	Events     *events.Emitter
	History    history.Ledger
	Policy     access.Policy
	Logger     *zap.Logger
	// Timeout bounds every store call.
	Timeout time.Duration
}

type DefaultService struct {
	repository DocumentRepository
	cache      *cache.Layer
	events     *events.Emitter
	history    history.Ledger
	policy     access.Policy
	logger     *zap.Logger
	timeout    time.Duration
	notifier   Notifier
}

func NewService(deps Deps) *DefaultService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &DefaultService{
		repository: deps.Repository,
		cache:      deps.Cache,
		events:     deps.Events,
		history:    deps.History,
		policy:     deps.Policy,
		logger:     deps.Logger,
		timeout:    deps.Timeout,
	}
}

// UseNotifier registers the deletion listener. Call it before serving.
func (s *DefaultService) UseNotifier(n Notifier) {
	s.notifier = n
}

func (s *DefaultService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *DefaultService) CreateDocument(ctx context.Context, ownerID string, input CreateInput) (*domain.Document, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.ErrInvalidInput
	}
	if !validShared(input.SharedWith) {
		return nil, domain.ErrInvalidInput
	}

	storeCtx, cancel := s.storeCtx(ctx)
	doc, err := s.repository.Create(storeCtx, domain.Document{
		Title:      input.Title,
		Content:    input.Content,
		OwnerID:    ownerID,
		SharedWith: input.SharedWith,
	})
	cancel()
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, doc.ID,
		func(ctx context.Context) error { return s.cacheWrite(ctx, doc) },
		func(ctx context.Context) error { return s.cacheDropLists(ctx, doc.OwnerID) },
		func(ctx context.Context) error {
			return s.emit(func() error { return s.events.DocumentCreated(ctx, doc) })
		},
	)
	return &doc, nil
}

// GetDocument serves the owner from the cache; ownerId never changes, so the
// check holds on any snapshot. Everyone else is checked against the store.
func (s *DefaultService) GetDocument(ctx context.Context, docID, actorID string) (*domain.Document, error) {
	doc, _, err := cache.ReadThrough(ctx, s.cache, cache.DocumentKey(docID), func(ctx context.Context) (domain.Document, error) {
		return s.load(ctx, docID)
	})
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, domain.ErrNotFound
	}
	if doc.OwnerID == actorID {
		return &doc, nil
	}

	canonical, err := s.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(canonical, actorID) {
		return nil, domain.ErrUnauthorized
	}
	return canonical, nil
}

func (s *DefaultService) load(ctx context.Context, docID string) (domain.Document, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repository.FindByID(ctx, docID)
}

func (s *DefaultService) Snapshot(ctx context.Context, docID string) (*domain.Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (s *DefaultService) GetUserDocuments(ctx context.Context, ownerID string, page, limit int) (*PaginatedDocuments, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	page, limit = ClampPagination(page, limit)

	docs, _, err := cache.ReadThrough(ctx, s.cache, cache.OwnerListKey(ownerID, page, limit), func(ctx context.Context) ([]domain.Document, error) {
		ctx, cancel := s.storeCtx(ctx)
		defer cancel()
		return s.repository.ListByOwner(ctx, ownerID, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &PaginatedDocuments{
		Data: docs,
		Meta: DocumentsMeta{Page: page, Limit: limit, Count: len(docs)},
	}, nil
}

func (s *DefaultService) UpdateDocument(
	ctx context.Context,
	docID, actorID string,
	expectedVersion *int64,
	patch domain.Patch,
	channel access.Channel,
) (*domain.Document, error) {
	current, err := s.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanUpdate(current, actorID, patch, channel) {
		return nil, domain.ErrUnauthorized
	}
	if expectedVersion == nil {
		return nil, domain.ErrVersionRequired
	}
	if patch.IsEmpty() {
		return nil, domain.ErrInvalidInput
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, domain.ErrInvalidInput
	}
	if patch.SharedWith != nil {
		if !validShared(*patch.SharedWith) {
			return nil, domain.ErrInvalidInput
		}
		normalized := domain.NormalizeShared(current.OwnerID, *patch.SharedWith)
		patch.SharedWith = &normalized
	}
	// The write may only land on the state the permission check saw.
	if current.Version != *expectedVersion {
		return nil, domain.ErrVersionConflict
	}

	storeCtx, cancel := s.storeCtx(ctx)
	updated, err := s.repository.CompareAndSwap(storeCtx, docID, *expectedVersion, patch)
	cancel()
	if err != nil {
		return nil, err
	}

	changes := patch.Changes()
	s.sideEffects(ctx, docID,
		func(ctx context.Context) error { return s.cacheWrite(ctx, updated) },
		func(ctx context.Context) error { return s.cacheDropLists(ctx, updated.OwnerID) },
		func(ctx context.Context) error {
			return s.emit(func() error {
				return s.events.DocumentUpdated(ctx, updated, actorID, *expectedVersion, changes)
			})
		},
		func(ctx context.Context) error {
			return s.appendHistory(ctx, domain.EditHistoryRecord{
				DocumentID:      docID,
				UserID:          actorID,
				Changes:         changes,
				PreviousVersion: *expectedVersion,
				Version:         updated.Version,
			})
		},
	)
	return &updated, nil
}

// DeleteDocument soft-deletes. A second delete returns the stored state and
// triggers no side effects.
func (s *DefaultService) DeleteDocument(ctx context.Context, docID, actorID string) (*domain.Document, error) {
	current, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanDelete(&current, actorID) {
		return nil, domain.ErrUnauthorized
	}
	if current.IsDeleted {
		return &current, nil
	}

	storeCtx, cancel := s.storeCtx(ctx)
	deleted, err := s.repository.SoftDelete(storeCtx, docID)
	cancel()
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, docID,
		func(ctx context.Context) error { return s.cacheDrop(ctx, docID) },
		func(ctx context.Context) error { return s.cacheDropLists(ctx, deleted.OwnerID) },
		func(ctx context.Context) error {
			return s.emit(func() error { return s.events.DocumentDeleted(ctx, deleted, actorID) })
		},
	)
	if s.notifier != nil {
		s.notifier.DocumentDeleted(docID)
	}
	return &deleted, nil
}

func (s *DefaultService) GetDocumentHistory(ctx context.Context, docID, actorID string) ([]domain.EditHistoryRecord, error) {
	doc, err := s.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(doc, actorID) {
		return nil, domain.ErrUnauthorized
	}
	if s.history == nil {
		return []domain.EditHistoryRecord{}, nil
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.history.ListByDocument(ctx, docID)
}

// sideEffects runs the best-effort steps of a committed mutation concurrently
// and waits for them. Their errors are logged by each step and never returned.
func (s *DefaultService) sideEffects(ctx context.Context, docID string, steps ...func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	for _, step := range steps {
		step := step
		g.Go(func() error {
			if err := step(ctx); err != nil {
				s.logger.Debug("side effect failed", zap.String("document_id", docID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *DefaultService) cacheWrite(ctx context.Context, doc domain.Document) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.WriteThrough(ctx, cache.DocumentKey(doc.ID), doc)
}

func (s *DefaultService) cacheDrop(ctx context.Context, docID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, cache.DocumentKey(docID))
}

func (s *DefaultService) cacheDropLists(ctx context.Context, ownerID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidatePrefix(ctx, cache.OwnerListPrefix(ownerID))
}

func (s *DefaultService) emit(publish func() error) error {
	if s.events == nil {
		return nil
	}
	return publish()
}

func (s *DefaultService) appendHistory(ctx context.Context, record domain.EditHistoryRecord) error {
	if s.history == nil {
		return nil
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.history.Append(ctx, record); err != nil {
		s.logger.Error("edit history append failed",
			zap.Bool("history_gap", true),
			zap.String("document_id", record.DocumentID),
			zap.Int64("version", record.Version),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func validShared(entries []domain.SharedEntry) bool {
	for _, e := range entries {
		if e.UserID == "" || !e.Permission.Valid() {
			return false
		}
	}
	return true
}

var _ Service = (*DefaultService)(nil)
