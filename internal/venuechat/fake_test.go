package venuechat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/johndosdos/eventhub/internal/model"
)

var errClosed = errors.New("fake: connection closed")

type fakeConn struct {
	mu      sync.Mutex
	written []model.Envelope
	inbound chan model.Envelope
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan model.Envelope, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) Write(_ context.Context, env model.Envelope) error {
	select {
	case <-f.closed:
		return errClosed
	default:
	}
	f.mu.Lock()
	f.written = append(f.written, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Read(ctx context.Context) (model.Envelope, error) {
	select {
	case env := <-f.inbound:
		return env, nil
	case <-f.closed:
		return model.Envelope{}, errClosed
	case <-ctx.Done():
		return model.Envelope{}, ctx.Err()
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeConn) at(i int) model.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written[i]
}

// events returns the names of written events in order.
func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.written))
	for i, env := range f.written {
		out[i] = env.Event
	}
	return out
}

func (f *fakeConn) typingStates(t *testing.T) []bool {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []bool
	for _, env := range f.written {
		if env.Event != model.EventTyping {
			continue
		}
		var p model.TypingPayload
		require.NoError(t, env.Decode(&p))
		out = append(out, p.IsTyping)
	}
	return out
}

func (f *fakeConn) push(t *testing.T, event string, data any) {
	t.Helper()
	env, err := model.NewEnvelope(event, data)
	require.NoError(t, err)
	f.inbound <- env
}

type fakeDialer struct {
	conn    *fakeConn
	err     error
	release chan struct{}

	mu     sync.Mutex
	header http.Header
	url    string
	calls  int
}

func (d *fakeDialer) Dial(_ context.Context, url string, header http.Header) (Conn, error) {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	d.calls++
	d.url = url
	d.header = header
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
