package domain

import (
	"time"
)

type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

type SharedEntry struct {
	UserID     string     `json:"userId"`
	Permission Permission `json:"permission"`
}

type Document struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	OwnerID    string        `json:"ownerId"`
	SharedWith []SharedEntry `json:"sharedWith"`
	IsDeleted  bool          `json:"isDeleted"`
	Version    int64         `json:"version"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Entry returns the sharedWith entry for userID, if any.
func (d *Document) Entry(userID string) (SharedEntry, bool) {
	for _, e := range d.SharedWith {
		if e.UserID == userID {
			return e, true
		}
	}
	return SharedEntry{}, false
}

// Patch is the set of fields a mutation changes. Nil fields are left as they are.
type Patch struct {
	Title      *string        `json:"title,omitempty"`
	Content    *string        `json:"content,omitempty"`
	SharedWith *[]SharedEntry `json:"sharedWith,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.SharedWith == nil
}

// Changes flattens the patch into the field-level delta recorded in history and events.
func (p Patch) Changes() map[string]any {
	changes := make(map[string]any, 3)
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Content != nil {
		changes["content"] = *p.Content
	}
	if p.SharedWith != nil {
		changes["sharedWith"] = *p.SharedWith
	}
	return changes
}

// Apply returns a copy of doc with the patch applied. Version and timestamps are untouched.
func (p Patch) Apply(doc Document) Document {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	if p.SharedWith != nil {
		doc.SharedWith = append([]SharedEntry(nil), (*p.SharedWith)...)
	}
	return doc
}

// NormalizeShared collapses duplicate user ids (write wins over read), drops the owner
// and keeps the first-seen order.
func NormalizeShared(ownerID string, entries []SharedEntry) []SharedEntry {
	out := make([]SharedEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.UserID == "" || e.UserID == ownerID {
			continue
		}
		if i, ok := index[e.UserID]; ok {
			if e.Permission == PermissionWrite {
				out[i].Permission = PermissionWrite
			}
			continue
		}
		index[e.UserID] = len(out)
		out = append(out, e)
	}
	return out
}

type EditHistoryRecord struct {
	ID              string         `json:"id"`
	DocumentID      string         `json:"documentId"`
	UserID          string         `json:"userId"`
	Changes         map[string]any `json:"changes"`
	PreviousVersion int64          `json:"previousVersion"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
}
