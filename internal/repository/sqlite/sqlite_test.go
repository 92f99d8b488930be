package sqlite

import (
	"context"
	"testing"

	"github.com/neristhub/campushub/internal/model"
)

// newTestDB opens a fresh in-memory database for one test. Fast, isolated,
// destroyed when the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user with sensible defaults and returns it.
func createTestUser(t *testing.T, db *DB, registration, name string) *model.User {
	t.Helper()
	user := &model.User{
		RegistrationNumber: registration,
		Name:               name,
		PasswordHash:       "$2a$04$fakehashfortests",
		SecurityCodeHash:   "$2a$04$fakehashfortests",
	}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestListing inserts a marketplace listing owned by owner.
func createTestListing(t *testing.T, db *DB, owner *model.User, kind model.Kind, status string, payload []byte) *model.Listing {
	t.Helper()
	if payload == nil {
		payload = []byte(`{"title":"test item"}`)
	}
	listing := &model.Listing{
		Kind:              kind,
		Status:            status,
		OwnerID:           owner.ID,
		OwnerName:         owner.Name,
		OwnerRegistration: owner.RegistrationNumber,
		Payload:           payload,
	}
	if err := db.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("failed to create test listing: %v", err)
	}
	return listing
}
