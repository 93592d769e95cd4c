package realtime

import "collaborative-document-service/internal/domain"

const (
	JoinRequestType  = "join-request"
	JoinAckType      = "join-ack"
	JoinErrorType    = "join-error"
	LeaveRequestType = "leave-request"
	LeaveAckType     = "leave-ack"
	EditRequestType  = "edit-request"
	EditAckType      = "edit-ack"
	EditErrorType    = "edit-error"
	BroadcastType    = "broadcast"
	DeletedType      = "deleted"
	ErrorType        = "error"
)

// Inbound is a frame sent by a session.
type Inbound struct {
	Type    string       `json:"type"`
	ID      string       `json:"id"`
	Changes domain.Patch `json:"changes"`
	// ExpectedVersion is the version the edit was made against. Version is
	// accepted as an alias.
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
	Version         *int64 `json:"version,omitempty"`
}

func (m Inbound) expectedVersion() *int64 {
	if m.ExpectedVersion != nil {
		return m.ExpectedVersion
	}
	return m.Version
}

// Outbound is a frame pushed to a session.
type Outbound struct {
	Type     string           `json:"type"`
	ID       string           `json:"id,omitempty"`
	Version  int64            `json:"version,omitempty"`
	Document *domain.Document `json:"document,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Code     string           `json:"code,omitempty"`
	Status   int              `json:"status,omitempty"`
}
