package oauthstate

import (
	"testing"
	"time"

	"github.com/dalemusser/stratatrack/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	state := "random-state-token-12345"
	if err := store.Create(ctx, state); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !store.Verify(ctx, state) {
		t.Error("Create() should create a valid state token")
	}
}

func TestStore_Create_UniqueConstraint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	state := "duplicate-state-token"
	if err := store.Create(ctx, state); err != nil {
		t.Fatalf("Create() first call error = %v", err)
	}
	if err := store.Create(ctx, state); err == nil {
		t.Error("Create() with duplicate state should fail")
	}
}

func TestStore_Verify_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	state := "single-use-token"
	store.Create(ctx, state)

	if !store.Verify(ctx, state) {
		t.Fatal("First Verify() should return true")
	}
	if store.Verify(ctx, state) {
		t.Error("Second Verify() should return false (token is single-use)")
	}
}

func TestStore_Verify_NonexistentToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if store.Verify(ctx, "nonexistent-token") {
		t.Error("Verify() should return false for nonexistent token")
	}
}

func TestStore_Verify_MultipleTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tokens := []string{"token-1-abc", "token-2-def", "token-3-ghi"}
	for _, token := range tokens {
		store.Create(ctx, token)
	}
	for _, token := range tokens {
		if !store.Verify(ctx, token) {
			t.Errorf("Verify(%s) should return true", token)
		}
	}
	for _, token := range tokens {
		if store.Verify(ctx, token) {
			t.Errorf("Verify(%s) second time should return false", token)
		}
	}
}

func TestStateStruct(t *testing.T) {
	now := time.Now()
	state := State{
		State:     "test-state",
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	}
	if state.State != "test-state" {
		t.Errorf("State.State = %v, want 'test-state'", state.State)
	}
	if state.ExpiresAt.Before(now) {
		t.Error("ExpiresAt should be in the future")
	}
}
