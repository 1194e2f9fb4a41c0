package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/testutil"
)

// exerciseStore runs the same contract against every Store implementation.
func exerciseStore(t *testing.T, store database.Store) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		u, err := store.CreateUser(ctx, model.User{Name: "Ann", Email: "ann@example.com"}, "hash")
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, u.Role)

		_, err = store.CreateUser(ctx, model.User{Name: "Ann 2", Email: "ANN@example.com"}, "hash")
		assert.ErrorIs(t, err, database.ErrDuplicateEmail)

		got, hash, err := store.GetUserWithPasswordByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "hash", hash)

		_, err = store.GetUserByID(ctx, "not-a-user")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("ban_and_unban", func(t *testing.T) {
		u, err := store.CreateUser(ctx, model.User{Name: "Bo", Email: "bo@example.com"}, "hash")
		require.NoError(t, err)

		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, store.BanUser(ctx, u.ID, "spam", at))

		got, err := store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.Banned())
		assert.Equal(t, "spam", got.BanReason)
		assert.True(t, at.Equal(*got.BannedAt))

		require.NoError(t, store.UnbanUser(ctx, u.ID))
		got, err = store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.Banned())
	})

	t.Run("verify", func(t *testing.T) {
		u, err := store.CreateUser(ctx, model.User{Name: "Cy", Email: "cy@example.com"}, "hash")
		require.NoError(t, err)
		assert.False(t, u.Verified)

		require.NoError(t, store.VerifyUser(ctx, u.ID))
		got, err := store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Verified)

		assert.ErrorIs(t, store.VerifyUser(ctx, "00000000-0000-0000-0000-000000000000"), database.ErrNotFound)
	})

	t.Run("venue_messages_sequence", func(t *testing.T) {
		org, err := store.CreateUser(ctx, model.User{Name: "Org", Email: "org@example.com", Role: model.RoleOrganizer}, "h")
		require.NoError(t, err)
		partner, err := store.CreateUser(ctx, model.User{Name: "Ven", Email: "ven@example.com", Role: model.RoleVenuePartner}, "h")
		require.NoError(t, err)

		enquiry, err := store.CreateEnquiry(ctx, model.Enquiry{OrganizerID: org.ID, PartnerID: partner.ID, VenueName: "Hall"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateVenueMessage(ctx, model.ChatMessage{
					RequestID: enquiry.ID, SenderID: org.ID, SenderName: org.Name, Text: "hi",
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		history, err := store.ListVenueMessages(ctx, enquiry.ID, 0)
		require.NoError(t, err)
		require.Len(t, history, 10)
		for i, m := range history {
			assert.Equal(t, int64(i+1), m.Seq)
		}

		recent, err := store.ListVenueMessages(ctx, enquiry.ID, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, int64(8), recent[0].Seq)
		assert.Equal(t, int64(10), recent[2].Seq)

		list, err := store.ListEnquiriesForUser(ctx, partner.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, enquiry.ID, list[0].ID)
	})

	t.Run("unknown_enquiry", func(t *testing.T) {
		_, err := store.CreateVenueMessage(ctx, model.ChatMessage{RequestID: "00000000-0000-0000-0000-000000000000", Text: "x"})
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("contacts", func(t *testing.T) {
		c, err := store.CreateContact(ctx, model.ContactMessage{Name: "A", Email: "a@x.com", Subject: "Other", Message: "hi"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "new", c.Status)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, database.NewMemory())
}

func TestPostgresStore(t *testing.T) {
	pool := testutil.DbInit(t)
	exerciseStore(t, database.NewPostgres(pool))
}
