// Package realtime keeps per-document rooms of live sessions and turns
// coordinator results into pushes to those rooms.
package realtime

import (
	"context"
	"sync"

	"collaborative-document-service/internal/access"
	"collaborative-document-service/internal/domain"
	apiError "collaborative-document-service/internal/errors"

	"go.uber.org/zap"
)

// Session is one live connection. Send must not block; it reports false when
// the session can no longer accept frames.
type Session interface {
	ID() string
	UserID() string
	Send(msg Outbound) bool
}

// Documents is the part of the coordinator the hub drives.
type Documents interface {
	Snapshot(ctx context.Context, docID string) (*domain.Document, error)
	UpdateDocument(ctx context.Context, docID, actorID string, expectedVersion *int64, patch domain.Patch, channel access.Channel) (*domain.Document, error)
}

type Hub struct {
	documents Documents
	logger    *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[Session]struct{}
}

func NewHub(documents Documents, logger *zap.Logger) *Hub {
	return &Hub{
		documents: documents,
		logger:    logger,
		rooms:     make(map[string]map[Session]struct{}),
	}
}

// Handle dispatches one inbound frame.
func (h *Hub) Handle(ctx context.Context, s Session, msg Inbound) {
	switch msg.Type {
	case JoinRequestType:
		h.Join(ctx, s, msg.ID)
	case LeaveRequestType:
		h.Leave(s, msg.ID)
		s.Send(Outbound{Type: LeaveAckType, ID: msg.ID})
	case EditRequestType:
		h.Edit(ctx, s, msg.ID, msg.expectedVersion(), msg.Changes)
	default:
		s.Send(Outbound{Type: ErrorType, Reason: "unknown message type", Code: apiError.CodeInvalidInput})
	}
}

// Join admits s to the room of docID after a read check on the stored document.
// The check is repeated once s is in the room: a delete or revoke that landed
// between the first read and the insert would otherwise leave s in a room it
// should not be in.
func (h *Hub) Join(ctx context.Context, s Session, docID string) {
	if _, err := h.readable(ctx, s, docID); err != nil {
		h.reject(s, JoinErrorType, docID, err)
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[docID]
	if !ok {
		room = make(map[Session]struct{})
		h.rooms[docID] = room
	}
	room[s] = struct{}{}
	h.mu.Unlock()

	doc, err := h.readable(ctx, s, docID)
	if err != nil {
		h.Leave(s, docID)
		h.reject(s, JoinErrorType, docID, err)
		return
	}

	h.logger.Debug("session joined",
		zap.String("document_id", docID),
		zap.String("session_id", s.ID()),
		zap.String("user_id", s.UserID()),
	)
	h.deliver(s, Outbound{Type: JoinAckType, ID: docID, Version: doc.Version})
}

func (h *Hub) readable(ctx context.Context, s Session, docID string) (*domain.Document, error) {
	doc, err := h.documents.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !access.Check(doc, s.UserID(), domain.PermissionRead) {
		return nil, apiError.Forbidden("Access denied", domain.ErrUnauthorized)
	}
	return doc, nil
}

func (h *Hub) Leave(s Session, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, docID)
}

// LeaveAll drops s from every room. Called when the connection ends.
func (h *Hub) LeaveAll(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for docID := range h.rooms {
		h.leaveLocked(s, docID)
	}
}

func (h *Hub) leaveLocked(s Session, docID string) {
	room, ok := h.rooms[docID]
	if !ok {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, docID)
	}
}

// Edit re-checks write access against a fresh read, since the join-time check
// may be stale, then runs the coordinator's update. Failures go to s only.
func (h *Hub) Edit(ctx context.Context, s Session, docID string, expectedVersion *int64, patch domain.Patch) {
	doc, err := h.documents.Snapshot(ctx, docID)
	if err != nil {
		h.reject(s, EditErrorType, docID, err)
		return
	}
	if !access.Check(doc, s.UserID(), domain.PermissionWrite) {
		h.reject(s, EditErrorType, docID, apiError.Forbidden("Write permission required", domain.ErrUnauthorized))
		return
	}

	updated, err := h.documents.UpdateDocument(ctx, docID, s.UserID(), expectedVersion, patch, access.ChannelRealtime)
	if err != nil {
		h.reject(s, EditErrorType, docID, err)
		return
	}

	h.Broadcast(docID, Outbound{Type: BroadcastType, ID: docID, Version: updated.Version, Document: updated})
	h.deliver(s, Outbound{Type: EditAckType, ID: docID, Version: updated.Version})
}

// Broadcast pushes msg to every member of the room.
func (h *Hub) Broadcast(docID string, msg Outbound) {
	for _, member := range h.members(docID) {
		h.deliver(member, msg)
	}
}

// DocumentDeleted tells the room the document is gone and closes the room.
func (h *Hub) DocumentDeleted(docID string) {
	h.mu.Lock()
	room := h.rooms[docID]
	delete(h.rooms, docID)
	h.mu.Unlock()

	for member := range room {
		member.Send(Outbound{Type: DeletedType, ID: docID})
	}
}

// Members is the number of sessions in the room of docID.
func (h *Hub) Members(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[docID])
}

func (h *Hub) members(docID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Session, 0, len(h.rooms[docID]))
	for s := range h.rooms[docID] {
		out = append(out, s)
	}
	return out
}

// deliver sends msg and evicts a session that cannot keep up.
func (h *Hub) deliver(s Session, msg Outbound) {
	if s.Send(msg) {
		return
	}
	h.logger.Warn("session send buffer full, evicting",
		zap.String("session_id", s.ID()),
		zap.String("user_id", s.UserID()),
	)
	h.LeaveAll(s)
}

func (h *Hub) reject(s Session, kind, docID string, err error) {
	apiErr := apiError.FromDomain(err)
	if apiErr.Status >= 500 {
		h.logger.Error("realtime operation failed",
			zap.String("type", kind),
			zap.String("document_id", docID),
			zap.Error(err),
		)
	}
	h.deliver(s, Outbound{
		Type:   kind,
		ID:     docID,
		Reason: apiErr.Message,
		Code:   apiErr.Code,
		Status: apiErr.Status,
	})
}
