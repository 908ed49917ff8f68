package accounts

import (
	"context"
	"errors"
	"testing"
)

func openTestDirectory(t *testing.T) *Directory {
	t.Helper()

	dir, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening directory: %v", err)
	}
	t.Cleanup(func() { dir.Close() })

	return dir
}

func TestCreateAndAuthenticate(t *testing.T) {
	dir := openTestDirectory(t)
	ctx := context.Background()

	id, err := dir.CreateAccount(ctx, "Pat", "pat@example.com", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero account id")
	}

	user, err := dir.Authenticate(ctx, "pat@example.com", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != id || user.Name != "Pat" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthenticateEmailIsCaseInsensitive(t *testing.T) {
	dir := openTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateAccount(ctx, "Pat", "Pat@Example.com", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := dir.Authenticate(ctx, "pat@example.com", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	dir := openTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateAccount(ctx, "Pat", "pat@example.com", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := dir.Authenticate(ctx, "pat@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := dir.Authenticate(ctx, "ghost@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	dir := openTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.CreateAccount(ctx, "Pat", "pat@example.com", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := dir.CreateAccount(ctx, "Other", "pat@example.com", "secret"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateAccountRejectsMissingFields(t *testing.T) {
	dir := openTestDirectory(t)

	if _, err := dir.CreateAccount(context.Background(), "", "pat@example.com", "x"); err == nil {
		t.Fatal("expected error for missing name")
	}
}
