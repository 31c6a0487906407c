package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"student-dashboard/internal/shared/failure"
)

// Fixed entry keys of a persisted session.
const (
	KeyToken = "auth_token"
	KeyUser  = "auth_user"
)

// ErrNoSession reports an absent, expired or unreadable session.
var ErrNoSession = failure.NotFound("no active session")

// User is the profile persisted next to the token.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is one logged-in browser session.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Store persists sessions by session id.
type Store interface {
	Load(ctx context.Context, sid string) (Session, error)
	Save(ctx context.Context, sid string, s Session) error
	Clear(ctx context.Context, sid string) error
}

func encode(s Session) (map[string]string, error) {
	user, err := json.Marshal(s.User)
	if err != nil {
		return nil, err
	}
	return map[string]string{KeyToken: s.Token, KeyUser: string(user)}, nil
}

// decode turns stored entries back into a Session. Anything missing or
// malformed reads as no session.
func decode(entries map[string]string) (Session, error) {
	token := strings.TrimSpace(entries[KeyToken])
	raw := entries[KeyUser]
	if token == "" || raw == "" {
		return Session{}, ErrNoSession
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return Session{}, errors.Join(ErrNoSession, err)
	}
	if user.ID == "" {
		return Session{}, ErrNoSession
	}
	return Session{Token: token, User: user}, nil
}

func validSID(sid string) bool {
	if sid == "" || len(sid) > 128 {
		return false
	}
	for _, r := range sid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
