package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSeatTokenRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, exp, err := iss.Issue("g1", "player_2", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v is in the past", exp)
	}
	c, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.GameID != "g1" || c.PlayerID != "player_2" || c.Name != "bob" {
		t.Fatalf("claims = %+v", c)
	}
}

func TestSeatTokenRejected(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, _, _ := iss.Issue("g1", "player_1", "ann")

	other := NewIssuer("another", time.Hour)
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret: %v", err)
	}

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.Issue("g1", "player_1", "ann")
	if _, err := iss.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: %v", err)
	}
	if _, err := iss.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: %v", err)
	}
}

func TestPasswords(t *testing.T) {
	h, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(h, "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(h, "hunter3"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong password: %v", err)
	}
	open, _ := HashPassword("")
	if err := CheckPassword(open, "anything"); err != nil {
		t.Fatalf("open room: %v", err)
	}
}

func TestRequireSeat(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, _, _ := iss.Issue("g9", "player_1", "ann")
	h := RequireSeat(iss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := Seat(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		_, _ = w.Write([]byte(c.GameID))
	}))

	for _, tc := range []struct {
		header string
		code   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + tok, http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.code {
			t.Errorf("%q: status %d, want %d", tc.header, rec.Code, tc.code)
		}
	}
}
