package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/asolanog/conversia/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-1", "ana@example.com", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	session, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("user id: got %q", session.UserID)
	}
	if session.Email != "ana@example.com" {
		t.Errorf("email: got %q", session.Email)
	}
	if session.Role != models.RoleAdmin {
		t.Errorf("role: got %q", session.Role)
	}
	if !session.Authenticated() {
		t.Error("parsed session should be authenticated")
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("expiry should be in the future")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Issue("user-1", "a@example.com", models.RoleUsuario)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = NewTokenService("secret-b", time.Hour).Parse(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	svc.ttl = -time.Minute

	token, err := svc.Issue("user-1", "a@example.com", models.RoleUsuario)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = svc.Parse(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestNilSessionNotAuthenticated(t *testing.T) {
	var s *Session
	if s.Authenticated() {
		t.Error("nil session should not be authenticated")
	}
}

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Publish(Event{Type: EventSignedIn, Session: &Session{UserID: "u1"}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventSignedIn || ev.Session.UserID != "u1" {
				t.Errorf("subscriber %d: unexpected event %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event received", i)
		}
	}

	// After cancel, the channel is closed and receives nothing further
	cancel1()
	n.Publish(Event{Type: EventSignedOut})

	if ev, ok := <-ch1; ok {
		t.Errorf("cancelled subscriber received event %+v", ev)
	}

	select {
	case ev := <-ch2:
		if ev.Type != EventSignedOut {
			t.Errorf("expected signed_out, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("active subscriber missed event")
	}
}

func TestNotifierSlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds
		for i := 0; i < 100; i++ {
			n.Publish(Event{Type: EventRefreshed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestNotifierCancelTwice(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe()
	cancel()
	cancel() // must not panic
}
