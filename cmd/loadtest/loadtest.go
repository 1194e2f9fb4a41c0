// Command loadtest signs up organizer and venue partner pairs, opens an
// enquiry for each pair and drives its chat from both sides.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/johndosdos/eventhub/internal/apiclient"
	"github.com/johndosdos/eventhub/internal/config"
	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/notify"
	"github.com/johndosdos/eventhub/internal/service"
	"github.com/johndosdos/eventhub/internal/session"
	"github.com/johndosdos/eventhub/internal/venuechat"
)

type options struct {
	apiURL   string
	wsURL    string
	pairs    int
	messages int
	interval time.Duration
	timeout  time.Duration
	admin    model.LoginRequest
}

type stats struct {
	sent      atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

func main() {
	var opts options
	flag.StringVar(&opts.apiURL, "api", "http://localhost:8080", "API base URL")
	flag.IntVar(&opts.pairs, "pairs", 10, "organizer/partner pairs")
	flag.IntVar(&opts.messages, "messages", 20, "messages per side")
	flag.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "delay between messages")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	opts.wsURL = config.WebsocketURL(opts.apiURL)
	opts.admin = model.LoginRequest{
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("load test failed", "error", err)
		os.Exit(1)
	}
}

func newAPI(baseURL string) *service.API {
	sessions := session.NewManager(session.NewMemoryStore())
	return service.New(apiclient.New(baseURL, sessions, notify.NewBus()))
}

func run(ctx context.Context, opts options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if opts.admin.Email == "" || opts.admin.Password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required to verify test accounts")
	}
	admin := newAPI(opts.apiURL)
	if _, err := admin.Login(ctx, opts.admin.Email, opts.admin.Password); err != nil {
		return fmt.Errorf("admin login: %w", err)
	}

	var st stats
	start := time.Now()
	runID := uuid.NewString()[:8]

	g, gctx := errgroup.WithContext(ctx)
	for i := range opts.pairs {
		g.Go(func() error {
			return runPair(gctx, opts, admin, fmt.Sprintf("%s-%d", runID, i), &st)
		})
	}
	err := g.Wait()

	elapsed := time.Since(start)
	slog.Info("load test finished",
		"pairs", opts.pairs,
		"sent", st.sent.Load(),
		"delivered", st.delivered.Load(),
		"failed", st.failed.Load(),
		"elapsed", elapsed,
		"msgs_per_sec", float64(st.delivered.Load())/elapsed.Seconds())
	return err
}

func signup(ctx context.Context, api, admin *service.API, name, role string) (model.User, error) {
	user, err := api.Signup(ctx, model.SignupRequest{
		Name:     name,
		Email:    name + "@loadtest.invalid",
		Password: "loadtest-password",
		Role:     role,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("signup %s: %w", name, err)
	}
	if err := admin.VerifyUser(ctx, user.ID); err != nil {
		return model.User{}, fmt.Errorf("verify %s: %w", name, err)
	}
	return user, nil
}

func runPair(ctx context.Context, opts options, admin *service.API, id string, st *stats) error {
	organizer, partner := newAPI(opts.apiURL), newAPI(opts.apiURL)

	if _, err := signup(ctx, organizer, admin, "org-"+id, model.RoleOrganizer); err != nil {
		return err
	}
	p, err := signup(ctx, partner, admin, "partner-"+id, model.RoleVenuePartner)
	if err != nil {
		return err
	}

	enquiry, err := organizer.CreateEnquiry(ctx, model.CreateEnquiryRequest{
		PartnerID: p.ID,
		VenueName: "Load Hall " + id,
	})
	if err != nil {
		return fmt.Errorf("create enquiry: %w", err)
	}

	chats := make([]*venuechat.Chat, 0, 2)
	for _, api := range []*service.API{organizer, partner} {
		c := venuechat.New(api.Client(), venuechat.Config{RequestID: enquiry.ID, WSURL: opts.wsURL})
		if err := c.Mount(ctx); err != nil {
			return fmt.Errorf("mount chat: %w", err)
		}
		defer c.Unmount()
		chats = append(chats, c)
	}
	for _, c := range chats {
		if err := waitFor(ctx, c, func() bool { return c.State() == venuechat.Joined }); err != nil {
			return fmt.Errorf("join chat: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for side, c := range chats {
		g.Go(func() error {
			for n := range opts.messages {
				c.Input("typing")
				if err := c.Send(gctx, fmt.Sprintf("side %d message %d", side, n)); err != nil {
					st.failed.Add(1)
					return err
				}
				st.sent.Add(1)

				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(opts.interval):
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	want := 2 * opts.messages
	for _, c := range chats {
		err := waitFor(ctx, c, func() bool { return len(c.Messages()) >= want })
		st.delivered.Add(int64(len(c.Messages())))
		if err != nil {
			return fmt.Errorf("enquiry %s: received %d of %d messages: %w",
				enquiry.ID, len(c.Messages()), want, err)
		}
	}
	return nil
}

// waitFor blocks until cond holds, re-checking it on every chat change.
func waitFor(ctx context.Context, c *venuechat.Chat, cond func() bool) error {
	changed := make(chan struct{}, 1)
	defer c.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})()

	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
	return nil
}
