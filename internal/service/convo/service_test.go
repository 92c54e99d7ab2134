package convo_test

import (
	"context"
	"testing"

	convo "pracame/internal/service/convo"
)

func TestServiceGetSession(t *testing.T) {
	svc := convo.NewService()
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	got, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := convo.NewService()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}
