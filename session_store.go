package auth

import (
	"time"
)

// SessionRecord is a server-side record correlating a user to an active
// login, independent of any token's own validity window. The identifier is
// store generated and opaque. Records may carry extra data supplied at
// creation time.
//
// A session always references exactly one user id that existed at creation
// time; the store never re-validates this across deletes, so readers must
// tolerate staleness.
type SessionRecord struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Data      map[string]any `json:"data,omitempty"`
}

func newSessionRecord(sessionID, userID string, data map[string]any) *SessionRecord {
	now := time.Now().UTC()
	rec := &SessionRecord{
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(data) > 0 {
		rec.Data = make(map[string]any, len(data))
		for k, v := range data {
			rec.Data[k] = v
		}
	}
	return rec
}

func (r *SessionRecord) clone() *SessionRecord {
	out := *r
	if r.Data != nil {
		out.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			out.Data[k] = v
		}
	}
	return &out
}
