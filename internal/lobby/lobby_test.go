package lobby

import (
	"errors"
	"fmt"
	"testing"
)

func TestUsernamesAreUniqueIgnoringCase(t *testing.T) {
	l := New(10)
	if _, err := l.AddUser("c1", "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddUser("c2", "alice"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate name: %v", err)
	}
	if _, err := l.AddUser("c3", "   "); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("blank name: %v", err)
	}
	if _, ok := l.RemoveUser("c1"); !ok {
		t.Fatal("remove failed")
	}
	if _, err := l.AddUser("c2", "alice"); err != nil {
		t.Fatalf("name should be free again: %v", err)
	}
}

func TestStatus(t *testing.T) {
	l := New(10)
	_, _ = l.AddUser("c1", "bob")
	u, ok := l.SetStatus("c1", StatusInGame)
	if !ok || u.Status != StatusInGame {
		t.Fatalf("SetStatus = %+v, %v", u, ok)
	}
	if _, ok := l.SetStatus("nobody", StatusOnline); ok {
		t.Fatal("unknown user should not be updated")
	}
}

func TestChatHistoryIsBounded(t *testing.T) {
	l := New(5)
	_, _ = l.AddUser("c1", "carol") // one system message
	for i := 0; i < 10; i++ {
		if _, err := l.Say("c1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	h := l.History(0)
	if len(h) != 5 {
		t.Fatalf("history has %d messages, want 5", len(h))
	}
	if h[0].Message != "msg 5" || h[4].Message != "msg 9" {
		t.Fatalf("history = %q .. %q", h[0].Message, h[4].Message)
	}
	if got := l.History(2); len(got) != 2 || got[1].Message != "msg 9" {
		t.Fatalf("History(2) = %+v", got)
	}
	if _, err := l.Say("ghost", "hi"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("anonymous chat: %v", err)
	}
	if _, err := l.Say("c1", "  "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty chat: %v", err)
	}
}

func TestSystemMessages(t *testing.T) {
	l := New(10)
	m := l.Announce("game g1 created")
	if !m.IsSystem || m.Username != "System" || m.ID == "" {
		t.Fatalf("announce = %+v", m)
	}
}
