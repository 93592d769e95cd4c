// Package access evaluates document permissions against an in-memory snapshot.
package access

import (
	"collaborative-document-service/internal/domain"
)

// Check reports whether actorID holds the required permission on doc.
// The owner is always allowed; a write entry implies read.
func Check(doc *domain.Document, actorID string, required domain.Permission) bool {
	if doc == nil || actorID == "" {
		return false
	}
	if doc.OwnerID == actorID {
		return true
	}

	entry, ok := doc.Entry(actorID)
	if !ok {
		return false
	}
	if required == domain.PermissionWrite {
		return entry.Permission == domain.PermissionWrite
	}
	return entry.Permission == domain.PermissionRead || entry.Permission == domain.PermissionWrite
}

// Channel identifies where a mutation came from.
type Channel int

const (
	ChannelAPI Channel = iota
	ChannelRealtime
)

// Policy is the single rule set for who may mutate a document.
type Policy struct {
	// SharedWriteViaAPI lets sharedWith write holders update through the
	// synchronous API, not only through live sessions.
	SharedWriteViaAPI bool
}

func (p Policy) CanRead(doc *domain.Document, actorID string) bool {
	return Check(doc, actorID, domain.PermissionRead)
}

// CanUpdate decides whether actorID may apply patch to doc through channel.
// Changing sharedWith always requires the owner.
func (p Policy) CanUpdate(doc *domain.Document, actorID string, patch domain.Patch, channel Channel) bool {
	if doc == nil {
		return false
	}
	if patch.SharedWith != nil && doc.OwnerID != actorID {
		return false
	}
	if channel == ChannelRealtime || p.SharedWriteViaAPI {
		return Check(doc, actorID, domain.PermissionWrite)
	}
	return doc.OwnerID == actorID
}

func (p Policy) CanDelete(doc *domain.Document, actorID string) bool {
	return doc != nil && actorID != "" && doc.OwnerID == actorID
}
