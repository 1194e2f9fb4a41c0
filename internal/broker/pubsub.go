// Package broker relays persisted enquiry chat messages between relay server
// instances over NATS JetStream.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/johndosdos/eventhub/internal/model"
)

var ErrNoJetStream = errors.New("internal/broker: jetstream interface is nil")

// EnsureStream creates or updates the stream backing all enquiry rooms.
func EnsureStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	if js == nil {
		return nil, ErrNoJetStream
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectRooms},
		MaxBytes: 1 << 30, // 1GB max storage
	})
	if err != nil {
		return nil, fmt.Errorf("internal/broker: failed to create/update stream: %w", err)
	}
	return stream, nil
}

// Publisher publishes a persisted message on its room subject. The message id
// doubles as the JetStream dedupe id.
func Publisher(ctx context.Context, js jetstream.JetStream, msg model.ChatMessage) (uint64, error) {
	if js == nil {
		return 0, ErrNoJetStream
	}
	if msg.RequestID == "" {
		return 0, errors.New("internal/broker: message has no request id")
	}

	p, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("internal/broker: could not encode payload to JSON: %w", err)
	}

	subject := RoomSubject(msg.RequestID)
	pubAck, err := js.Publish(ctx, subject, p, jetstream.WithMsgID(msg.ID))
	if err != nil {
		return 0, fmt.Errorf("internal/broker: failed to publish to stream [%s]: %w", subject, err)
	}

	slog.DebugContext(ctx, "published chat message",
		"subject", subject,
		"sender_id", msg.SenderID,
		"stream_seq", pubAck.Sequence)

	return pubAck.Sequence, nil
}

// Subscriber consumes new room messages from stream and forwards them to
// receiveMsg until ctx is done. History is served from the database, so the
// consumer starts at new messages only.
func Subscriber(ctx context.Context, stream jetstream.Stream, receiveMsg chan<- model.ChatMessage) error {
	if stream == nil {
		return errors.New("internal/broker: stream is nil")
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: SubjectRooms,
	})
	if err != nil {
		return fmt.Errorf("internal/broker: failed to create or update consumer: %w", err)
	}

	consumeHandler := func(msg jetstream.Msg) {
		var payload model.ChatMessage
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			slog.Warn("could not decode payload", "error", err, "subject", msg.Subject())
			_ = msg.Term()
			return
		}

		_ = msg.Ack()

		select {
		case receiveMsg <- payload:
		case <-ctx.Done():
		}
	}

	optErrHandler := jetstream.ConsumeErrHandler(func(cctx jetstream.ConsumeContext, err error) {
		slog.Warn("consumer error", "error", err)
	})

	consumeCtx, err := consumer.Consume(consumeHandler, optErrHandler)
	if err != nil {
		return fmt.Errorf("internal/broker: failed to start consuming messages: %w", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Drain()
	}()

	return nil
}
