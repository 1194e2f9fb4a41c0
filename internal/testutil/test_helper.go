// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

// TestSecret signs tokens in tests.
const TestSecret = "test-secret"

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DbInit connects to TEST_DB_URL and applies migrations on a clean schema.
// The test is skipped when TEST_DB_URL is not set.
func DbInit(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load(filepath.Join(ProjectRoot(), ".env"))

	testURL := os.Getenv("TEST_DB_URL")
	if testURL == "" {
		t.Skip("TEST_DB_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}

	if err := database.Reset(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("database.Reset() error = %+v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("database.Migrate() error = %+v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.Reset(ctx, pool); err != nil {
			t.Logf("database.Reset() error = %+v", err)
		}
		pool.Close()
	})

	return pool
}

// CreateUser stores a user with a known password and returns it with a
// signed access token.
func CreateUser(t *testing.T, store database.Store, user model.User, password string) (model.User, string) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("auth.HashPassword() error = %+v", err)
	}

	created, err := store.CreateUser(context.Background(), user, hash)
	if err != nil {
		t.Fatalf("store.CreateUser() error = %+v", err)
	}

	token, err := auth.MakeJWT(created.ID, TestSecret, "eventhub-test", time.Hour)
	if err != nil {
		t.Fatalf("auth.MakeJWT() error = %+v", err)
	}

	return created, token
}

// Conversation creates an organizer, a venue partner and an enquiry between
// them. Both users are verified.
type Conversation struct {
	Organizer      model.User
	OrganizerToken string
	Partner        model.User
	PartnerToken   string
	Enquiry        model.Enquiry
}

func NewConversation(t *testing.T, store database.Store) Conversation {
	t.Helper()

	var c Conversation
	c.Organizer, c.OrganizerToken = CreateUser(t, store, model.User{
		Name: "Olive Organizer", Email: "olive@example.com", Role: model.RoleOrganizer, Verified: true,
	}, "password1234")
	c.Partner, c.PartnerToken = CreateUser(t, store, model.User{
		Name: "Victor Venue", Email: "victor@example.com", Role: model.RoleVenuePartner, Verified: true,
	}, "password1234")

	enquiry, err := store.CreateEnquiry(context.Background(), model.Enquiry{
		OrganizerID: c.Organizer.ID,
		PartnerID:   c.Partner.ID,
		VenueName:   "Harbour Hall",
	})
	if err != nil {
		t.Fatalf("store.CreateEnquiry() error = %+v", err)
	}
	c.Enquiry = enquiry

	return c
}
