// Package bunstore is a SQL backed reference implementation of the
// auth.UserStore contract. Identity columns (username, email, password
// hash) are first class; every other schema field rides in a metadata
// column so the open user schema survives a fixed table layout.
package bunstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-authkit"
)

var _ auth.UserStore = (*UserStore)(nil)

// UserRecord is the persisted user model.
type UserRecord struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	Username     string     `bun:"username,nullzero,unique"`
	Email        string     `bun:"email,nullzero,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	Metadata     string     `bun:"metadata,nullzero"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// identity columns addressable by login fields; everything else lives in
// metadata and cannot be used to locate users.
var identityColumns = map[string]struct{}{
	"username": {},
	"email":    {},
}

// UserStore implements auth.UserStore on top of bun.
type UserStore struct {
	db bun.IDB
}

// New creates a store over an initialized bun database handle.
func New(db bun.IDB) *UserStore {
	return &UserStore{db: db}
}

// Create persists the field set and returns it with a store assigned id.
// The "password" key is expected to already hold the hash.
func (s *UserStore) Create(ctx context.Context, fields map[string]any) (map[string]any, error) {
	rec := &UserRecord{ID: uuid.New()}

	extra := map[string]any{}
	for k, v := range fields {
		switch k {
		case "username":
			rec.Username, _ = v.(string)
		case "email":
			rec.Email, _ = v.(string)
		case "password":
			rec.PasswordHash, _ = v.(string)
		default:
			extra[k] = v
		}
	}

	if len(extra) > 0 {
		payload, err := json.Marshal(extra)
		if err != nil {
			return nil, err
		}
		rec.Metadata = string(payload)
	}

	now := time.Now()
	rec.CreatedAt = &now
	rec.UpdatedAt = &now

	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, err
	}

	return s.toFields(rec)
}

// Find locates a user matching any of the supplied login field values.
// Only identity columns participate; unknown query fields are ignored.
// Absence is (nil, nil).
func (s *UserStore) Find(ctx context.Context, query map[string]any) (map[string]any, error) {
	rec := &UserRecord{}

	q := s.db.NewSelect().Model(rec)
	matched := false
	for field, value := range query {
		if _, ok := identityColumns[field]; !ok {
			continue
		}
		if matched {
			q = q.WhereOr("usr."+field+" = ?", value)
		} else {
			q = q.Where("usr."+field+" = ?", value)
			matched = true
		}
	}

	if !matched {
		return nil, nil
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return s.toFields(rec)
}

// Get fetches a user by id. Absence is (nil, nil).
func (s *UserStore) Get(ctx context.Context, userID string) (map[string]any, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}

	rec := &UserRecord{}
	err = s.db.NewSelect().Model(rec).Where("usr.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return s.toFields(rec)
}

// Delete removes a user by id. Deleting a missing user is a no-op.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}

	_, err = s.db.NewDelete().Model((*UserRecord)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (s *UserStore) toFields(rec *UserRecord) (map[string]any, error) {
	out := map[string]any{
		"id":       rec.ID.String(),
		"password": rec.PasswordHash,
	}
	if rec.Username != "" {
		out["username"] = rec.Username
	}
	if rec.Email != "" {
		out["email"] = rec.Email
	}

	if rec.Metadata != "" {
		extra := map[string]any{}
		if err := json.Unmarshal([]byte(rec.Metadata), &extra); err != nil {
			return nil, err
		}
		for k, v := range extra {
			if _, taken := out[k]; !taken {
				out[k] = v
			}
		}
	}

	return out, nil
}
