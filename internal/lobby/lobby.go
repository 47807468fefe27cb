// internal/lobby/lobby.go
//
// Lobby bookkeeping: who is online, who is in a game, and the shared chat.
// Users are keyed by connection id; usernames are unique ignoring case.
// Chat history is bounded; the oldest messages fall off first.

package lobby

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrInvalidUsername = errors.New("username must be 1-24 characters")
	ErrUnknownUser     = errors.New("not logged in")
	ErrEmptyMessage    = errors.New("message is empty")
)

// Status is a user's presence in the lobby.
type Status string

const (
	StatusOnline Status = "online"
	StatusInGame Status = "in-game"
)

const (
	maxUsernameLen = 24
	maxMessageLen  = 500
)

type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"isSystem,omitempty"`
}

// Lobby is safe for concurrent use.
type Lobby struct {
	mu         sync.RWMutex
	users      map[string]*User
	chat       []ChatMessage
	maxHistory int
	now        func() time.Time
}

// New returns an empty lobby keeping at most maxHistory chat messages.
func New(maxHistory int) *Lobby {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &Lobby{users: map[string]*User{}, maxHistory: maxHistory, now: time.Now}
}

// AddUser logs a connection in under username.
func (l *Lobby) AddUser(connID, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLen {
		return User{}, ErrInvalidUsername
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, u := range l.users {
		if id != connID && strings.EqualFold(u.Username, username) {
			return User{}, ErrUsernameTaken
		}
	}
	u := &User{ID: connID, Username: username, Status: StatusOnline, JoinedAt: l.now()}
	l.users[connID] = u
	l.appendLocked(l.systemLocked(username + " has joined the lobby"))
	return *u, nil
}

// RemoveUser logs a connection out. ok is false if it was not logged in.
func (l *Lobby) RemoveUser(connID string) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[connID]
	if !ok {
		return User{}, false
	}
	delete(l.users, connID)
	l.appendLocked(l.systemLocked(u.Username + " has left the lobby"))
	return *u, true
}

func (l *Lobby) SetStatus(connID string, s Status) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[connID]
	if !ok {
		return User{}, false
	}
	u.Status = s
	return *u, true
}

func (l *Lobby) User(connID string) (User, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.users[connID]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Users lists everyone, oldest login first.
func (l *Lobby) Users() []User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]User, 0, len(l.users))
	for _, u := range l.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Say posts a chat message from a logged-in connection.
func (l *Lobby) Say(connID, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[connID]
	if !ok {
		return ChatMessage{}, ErrUnknownUser
	}
	m := ChatMessage{
		ID:        uuid.NewString(),
		UserID:    connID,
		Username:  u.Username,
		Message:   text,
		Timestamp: l.now(),
	}
	l.appendLocked(m)
	return m, nil
}

// Announce posts a system message.
func (l *Lobby) Announce(text string) ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.systemLocked(text)
	l.appendLocked(m)
	return m
}

// History returns up to limit of the most recent messages, oldest first.
func (l *Lobby) History(limit int) []ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.chat) {
		limit = len(l.chat)
	}
	return append([]ChatMessage{}, l.chat[len(l.chat)-limit:]...)
}

func (l *Lobby) systemLocked(text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		UserID:    "system",
		Username:  "System",
		Message:   text,
		Timestamp: l.now(),
		IsSystem:  true,
	}
}

func (l *Lobby) appendLocked(m ChatMessage) {
	l.chat = append(l.chat, m)
	if over := len(l.chat) - l.maxHistory; over > 0 {
		l.chat = append([]ChatMessage{}, l.chat[over:]...)
	}
}
