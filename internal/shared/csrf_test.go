package shared

import (
	"context"
	"testing"
)

func TestEnsureTokenIsStablePerSession(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc", values: map[string]string{}}

	first, err := m.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first == "" {
		t.Fatalf("expected a token")
	}
	second, err := m.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same token for the same session")
	}
}

func TestRotateInvalidatesOldToken(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc", values: map[string]string{}}

	old, err := m.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	m.Rotate(sess)
	sess.ID = "rotated"

	if err := m.VerifyToken(context.Background(), sess, old); err != ErrCSRFTokenMissing {
		t.Fatalf("expected rotated session to drop the old token, got %v", err)
	}
	fresh, err := m.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if fresh == old {
		t.Fatalf("expected a new token after rotation")
	}
}

func TestVerifyToken(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc", values: map[string]string{}}
	token, err := m.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := m.VerifyToken(context.Background(), sess, token); err != nil {
		t.Fatalf("expected valid token to verify, got %v", err)
	}
	if err := m.VerifyToken(context.Background(), sess, "tampered"); err != ErrCSRFTokenMismatch {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if err := m.VerifyToken(context.Background(), sess, ""); err != ErrCSRFTokenMissing {
		t.Fatalf("expected missing error, got %v", err)
	}
	if err := m.VerifyToken(context.Background(), nil, token); err != ErrCSRFTokenMissing {
		t.Fatalf("expected missing error for nil session, got %v", err)
	}
}
