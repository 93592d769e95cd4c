// Package events publishes document lifecycle events to a broker. Delivery is
// at-least-once from the broker's side and best-effort from the caller's.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collaborative-document-service/internal/domain"

	"go.uber.org/zap"
)

const (
	TopicDocumentCreated        = "document.created"
	TopicDocumentUpdated        = "document.updated"
	TopicDocumentVersionUpdated = "document.version.updated"
	TopicDocumentDeleted        = "document.deleted"
)

// Publisher is the broker driver: fire bytes at a topic, partitioned by key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// DocumentEvent is the payload of every document topic.
type DocumentEvent struct {
	DocumentID      string         `json:"documentId"`
	OwnerID         string         `json:"ownerId"`
	ActorID         string         `json:"actorId,omitempty"`
	Title           string         `json:"title,omitempty"`
	Changes         map[string]any `json:"changes,omitempty"`
	PreviousVersion int64          `json:"previousVersion,omitempty"`
	Version         int64          `json:"version,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Emitter turns document mutations into topic messages on a Publisher.
type Emitter struct {
	publisher Publisher
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, timeout time.Duration, logger *zap.Logger) *Emitter {
	return &Emitter{publisher: publisher, timeout: timeout, logger: logger, now: time.Now}
}

func (e *Emitter) DocumentCreated(ctx context.Context, doc domain.Document) error {
	return e.emit(ctx, TopicDocumentCreated, DocumentEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		ActorID:    doc.OwnerID,
		Title:      doc.Title,
		Version:    doc.Version,
	})
}

// DocumentUpdated emits both document.updated and document.version.updated.
// Both are attempted even if the first fails.
func (e *Emitter) DocumentUpdated(ctx context.Context, doc domain.Document, actorID string, previousVersion int64, changes map[string]any) error {
	updated := e.emit(ctx, TopicDocumentUpdated, DocumentEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		ActorID:    actorID,
		Changes:    changes,
		Version:    doc.Version,
	})
	versioned := e.emit(ctx, TopicDocumentVersionUpdated, DocumentEvent{
		DocumentID:      doc.ID,
		OwnerID:         doc.OwnerID,
		ActorID:         actorID,
		PreviousVersion: previousVersion,
		Version:         doc.Version,
	})
	return errors.Join(updated, versioned)
}

func (e *Emitter) DocumentDeleted(ctx context.Context, doc domain.Document, actorID string) error {
	return e.emit(ctx, TopicDocumentDeleted, DocumentEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		ActorID:    actorID,
		Version:    doc.Version,
	})
}

func (e *Emitter) emit(ctx context.Context, topic string, event DocumentEvent) error {
	event.Timestamp = e.now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.publisher.Publish(ctx, topic, event.DocumentID, payload); err != nil {
		e.logger.Warn("event publish failed",
			zap.String("op", "events.publish"),
			zap.String("topic", topic),
			zap.String("document_id", event.DocumentID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
