package broker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/eventhub/internal/model"
)

func TestRoomSubject(t *testing.T) {
	assert.Equal(t, "VENUE.room.abc", RoomSubject("abc"))
	assert.Equal(t, "VENUE.room.*", SubjectRooms)
}

func TestPublisher_Rejects(t *testing.T) {
	ctx := context.Background()

	_, err := Publisher(ctx, nil, model.ChatMessage{RequestID: "r1"})
	assert.ErrorIs(t, err, ErrNoJetStream)

	_, err = EnsureStream(ctx, nil)
	assert.ErrorIs(t, err, ErrNoJetStream)

	assert.Error(t, Subscriber(ctx, nil, make(chan model.ChatMessage)))
}

func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := nats.Connect(url, nats.Timeout(5*time.Second))
	require.NoError(t, err)
	defer conn.Close()

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	stream, err := EnsureStream(ctx, js)
	require.NoError(t, err)

	received := make(chan model.ChatMessage, 1)
	require.NoError(t, Subscriber(ctx, stream, received))

	sent := model.ChatMessage{
		ID:        uuid.NewString(),
		RequestID: uuid.NewString(),
		SenderID:  "u1",
		Text:      "Is the hall free on the 12th?",
		Seq:       1,
	}
	_, err = Publisher(ctx, js, sent)
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Text, got.Text)
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}
