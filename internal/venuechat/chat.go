// Package venuechat is the client side of an enquiry's real-time chat. A
// Chat is mounted for one enquiry, loads its history, joins the room over a
// WebSocket connection and keeps the message list and typing indicators up
// to date until it is unmounted.
package venuechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/johndosdos/eventhub/internal/apiclient"
	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/notify"
)

var (
	ErrNoSession    = errors.New("venuechat: no session")
	ErrNoRequest    = errors.New("venuechat: request id is required")
	ErrNotConnected = errors.New("venuechat: not connected")
	ErrEmptyMessage = errors.New("venuechat: message is empty")
	ErrMounted      = errors.New("venuechat: already mounted")
)

// Toast messages.
const (
	MsgConnectFailed  = "Failed to connect to chat"
	MsgNotConnected   = "Not connected to chat. Please wait or refresh."
	MsgHistoryFailed  = "Failed to load messages"
	MsgSendFailed     = "Failed to send message"
	DefaultTypingIdle = time.Second
	// DefaultGapTimeout is how long messages wait for a missing seq before
	// they are shown anyway.
	DefaultGapTimeout = 2 * time.Second

	writeTimeout = 5 * time.Second
)

type State int

const (
	Disconnected State = iota
	Connecting
	Joined
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

// TypingUser is another participant currently typing.
type TypingUser struct {
	UserID   string
	UserName string
}

type Config struct {
	RequestID string
	// WSURL is the relay server's /ws endpoint.
	WSURL      string
	Dialer     Dialer
	TypingIdle time.Duration
	MaxPending int
	GapTimeout time.Duration
	Logger     *slog.Logger
}

// Chat is the state of one mounted enquiry chat view.
type Chat struct {
	api        *apiclient.Client
	bus        *notify.Bus
	requestID  string
	wsURL      string
	dialer     Dialer
	typingIdle time.Duration
	gapTimeout time.Duration
	log        *slog.Logger

	changes notify.Topic[struct{}]

	mu        sync.Mutex
	state     State
	selfID    string
	conn      Conn
	cancel    context.CancelFunc
	mounted   bool
	unmounted bool
	timeline  *timeline
	typing    map[string]string

	// Outbound typing burst.
	typingActive bool
	typingGen    uint64
	typingTimer  *time.Timer

	gapGen   uint64
	gapTimer *time.Timer
}

func New(api *apiclient.Client, cfg Config) *Chat {
	if cfg.Dialer == nil {
		cfg.Dialer = WSDialer{}
	}
	if cfg.TypingIdle <= 0 {
		cfg.TypingIdle = DefaultTypingIdle
	}
	if cfg.GapTimeout <= 0 {
		cfg.GapTimeout = DefaultGapTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Chat{
		api:        api,
		bus:        api.Bus(),
		requestID:  cfg.RequestID,
		wsURL:      cfg.WSURL,
		dialer:     cfg.Dialer,
		typingIdle: cfg.TypingIdle,
		gapTimeout: cfg.GapTimeout,
		log:        cfg.Logger.With("request_id", cfg.RequestID),
		timeline:   newTimeline(cfg.MaxPending),
		typing:     make(map[string]string),
	}
}

func (c *Chat) RequestID() string { return c.requestID }

// OnChange registers fn to run after messages, typing or state change.
func (c *Chat) OnChange(fn func()) (unsubscribe func()) {
	return c.changes.Subscribe(func(struct{}) { fn() })
}

func (c *Chat) changed() { c.changes.Publish(struct{}{}) }

func (c *Chat) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns the visible messages in display order.
func (c *Chat) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.messages()
}

// Typing returns the other participants currently typing, by name.
func (c *Chat) Typing() []TypingUser {
	c.mu.Lock()
	users := lo.MapToSlice(c.typing, func(id, name string) TypingUser {
		return TypingUser{UserID: id, UserName: name}
	})
	c.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
	return users
}

// Mount loads the history and connects in the background. The connection
// lives until Unmount or until ctx is done. A history failure is reported as
// an error toast and does not fail the mount.
func (c *Chat) Mount(ctx context.Context) error {
	if c.requestID == "" {
		return ErrNoRequest
	}
	sess, ok := c.api.Sessions().Get()
	if !ok {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrMounted
	}
	c.mounted = true
	c.selfID = sess.UserID
	c.state = Connecting
	connCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	c.changed()

	go c.connect(connCtx)

	var history model.MessageHistory
	path := "/venue-requests/" + url.PathEscape(c.requestID) + "/messages"
	err := c.api.Get(ctx, path, &history)

	c.mu.Lock()
	if err != nil {
		c.timeline.anchorLazily()
	} else {
		c.timeline.anchor(history.Messages)
	}
	c.watchGapLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.WarnContext(ctx, "failed to load chat history", "error", err)
		c.bus.Error(apiclient.Message(err, MsgHistoryFailed))
	}
	c.changed()
	return nil
}

func (c *Chat) connect(ctx context.Context) {
	conn, err := c.dialer.Dial(ctx, c.wsURL, apiclient.AuthHeader(c.api.Sessions()))

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		if err == nil {
			// Unmounted while dialing: the connection still gets its leave.
			c.leave(conn)
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		// Stays Connecting; there is no automatic retry.
		c.log.Warn("chat connection failed", "error", err)
		c.bus.Error(MsgConnectFailed)
		return
	}

	// Join is written under the lock: a concurrent Unmount's leave must
	// follow it.
	if err := c.write(conn, model.EventJoin, model.RoomPayload{RequestID: c.requestID}); err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to join chat", "error", err)
		c.bus.Error(MsgConnectFailed)
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = Joined
	c.mu.Unlock()
	c.changed()

	c.read(ctx, conn)
}

func (c *Chat) read(ctx context.Context, conn Conn) {
	for {
		env, err := conn.Read(ctx)
		if err != nil {
			c.disconnected(conn)
			return
		}
		c.dispatch(env)
	}
}

func (c *Chat) dispatch(env model.Envelope) {
	switch env.Event {
	case model.EventNewMessage:
		var p model.NewMessagePayload
		if err := env.Decode(&p); err != nil {
			c.log.Warn("bad message event", "error", err)
			return
		}
		if p.Message.RequestID != "" && p.Message.RequestID != c.requestID {
			return
		}
		c.mu.Lock()
		changed := c.timeline.add(p.Message)
		c.watchGapLocked()
		c.mu.Unlock()
		if changed {
			c.changed()
		}

	case model.EventUserTyping:
		var p model.UserTypingPayload
		if err := env.Decode(&p); err != nil {
			c.log.Warn("bad typing event", "error", err)
			return
		}
		c.mu.Lock()
		if p.UserID == c.selfID {
			c.mu.Unlock()
			return
		}
		if p.IsTyping {
			c.typing[p.UserID] = p.UserName
		} else {
			delete(c.typing, p.UserID)
		}
		c.mu.Unlock()
		c.changed()

	case model.EventError:
		var p model.ErrorPayload
		if err := env.Decode(&p); err != nil || p.Message == "" {
			p.Message = "Chat error"
		}
		c.bus.Error(p.Message)

	default:
		c.log.Debug("ignoring event", "event", env.Event)
	}
}

func (c *Chat) disconnected(conn Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = Disconnected
	clear(c.typing)
	c.stopTypingLocked()
	c.mu.Unlock()

	c.log.Info("chat disconnected")
	c.changed()
}

// watchGapLocked starts the gap timer when messages are held back and stops
// it once the gap has filled.
func (c *Chat) watchGapLocked() {
	if !c.timeline.hasGap() {
		c.stopGapLocked()
		return
	}
	if c.gapTimer != nil {
		return
	}
	c.gapGen++
	gen := c.gapGen
	c.gapTimer = time.AfterFunc(c.gapTimeout, func() { c.gapExpired(gen) })
}

func (c *Chat) stopGapLocked() {
	if c.gapTimer == nil {
		return
	}
	c.gapTimer.Stop()
	c.gapTimer = nil
	c.gapGen++
}

func (c *Chat) gapExpired(gen uint64) {
	c.mu.Lock()
	if gen != c.gapGen || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.gapTimer = nil
	if !c.timeline.hasGap() {
		c.mu.Unlock()
		return
	}
	c.log.Warn("message gap did not fill; showing held messages",
		"last_seq", c.timeline.lastSeq,
		"held", len(c.timeline.pending))
	c.timeline.flush()
	c.mu.Unlock()
	c.changed()
}

// Input records a keystroke. The first keystroke of a burst sends
// isTyping=true; one idle period after the last keystroke isTyping=false is
// sent exactly once.
func (c *Chat) Input(text string) {
	c.mu.Lock()
	if c.state != Joined {
		c.mu.Unlock()
		return
	}

	conn := c.conn
	start := !c.typingActive
	c.typingActive = true
	c.typingGen++
	gen := c.typingGen
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.typingIdle, func() { c.typingExpired(gen) })
	c.mu.Unlock()

	if start {
		c.sendTyping(conn, true)
	}
}

func (c *Chat) typingExpired(gen uint64) {
	c.mu.Lock()
	if gen != c.typingGen || !c.typingActive {
		c.mu.Unlock()
		return
	}
	c.typingActive = false
	c.typingTimer = nil
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.sendTyping(conn, false)
	}
}

// stopTypingLocked ends the current burst and reports whether one was active.
func (c *Chat) stopTypingLocked() bool {
	active := c.typingActive
	c.typingActive = false
	c.typingGen++
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	return active
}

func (c *Chat) sendTyping(conn Conn, isTyping bool) {
	err := c.write(conn, model.EventTyping, model.TypingPayload{RequestID: c.requestID, IsTyping: isTyping})
	if err != nil {
		c.log.Debug("failed to send typing state", "error", err)
	}
}

// Send posts a message. It is rejected locally unless the chat is joined.
// The message appears once the server relays it back.
func (c *Chat) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != Joined {
		c.mu.Unlock()
		c.bus.Error(MsgNotConnected)
		return ErrNotConnected
	}
	conn := c.conn
	wasTyping := c.stopTypingLocked()
	c.mu.Unlock()

	if err := c.write(conn, model.EventSend, model.SendPayload{RequestID: c.requestID, Message: text}); err != nil {
		c.log.WarnContext(ctx, "failed to send message", "error", err)
		c.bus.Error(MsgSendFailed)
		return fmt.Errorf("venuechat: send: %w", err)
	}
	if wasTyping {
		c.sendTyping(conn, false)
	}
	return nil
}

// Unmount leaves the room and closes the connection. It is safe to call
// more than once and before the connection is established.
func (c *Chat) Unmount() {
	c.mu.Lock()
	if !c.mounted || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	clear(c.typing)
	c.stopTypingLocked()
	c.stopGapLocked()
	cancel := c.cancel
	c.mu.Unlock()

	if conn != nil {
		c.leave(conn)
	}
	// A dial that still completes is handed its leave by connect.
	cancel()
	c.changed()
}

func (c *Chat) leave(conn Conn) {
	if err := c.write(conn, model.EventLeave, model.RoomPayload{RequestID: c.requestID}); err != nil {
		c.log.Debug("failed to send leave", "error", err)
	}
	if err := conn.Close(); err != nil {
		c.log.Debug("failed to close chat connection", "error", err)
	}
}

func (c *Chat) write(conn Conn, event string, data any) error {
	env, err := model.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, env)
}
