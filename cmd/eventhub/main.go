// Command eventhub is a terminal client for the eventhub API.
//
//	eventhub login -email ana@example.com -password ...
//	eventhub chat -request <enquiry id>
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/johndosdos/eventhub/internal/apiclient"
	"github.com/johndosdos/eventhub/internal/config"
	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/notify"
	"github.com/johndosdos/eventhub/internal/service"
	"github.com/johndosdos/eventhub/internal/session"
	"github.com/johndosdos/eventhub/internal/venuechat"
)

const usage = `usage: eventhub <command> [flags]

commands:
  login      sign in and store the session
  logout     forget the stored session
  whoami     show the signed-in user
  contact    send the general contact form
  enquiries  list your venue enquiries
  events     search events
  chat       open an enquiry chat (type /quit to leave)
`

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg    config.Client
	api    *service.API
	bus    *notify.Bus
	stdin  io.Reader
	stdout io.Writer
}

// terminal stands in for browser navigation: being sent to the login page
// means being told to sign in again.
type terminal struct {
	w io.Writer
}

func (terminal) Location() string { return "" }

func (t terminal) Navigate(path string) {
	fmt.Fprintln(t.w, "Session ended. Run `eventhub login` to sign in again.")
}

func run(ctx context.Context, cfg config.Client, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	dir := cfg.SessionDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve session directory: %w", err)
		}
		dir = filepath.Join(base, "eventhub")
	}
	store, err := session.OpenBadger(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := notify.NewBus()
	defer bus.Toasts.Subscribe(func(t notify.Toast) {
		fmt.Fprintf(stderr, "[%s] %s\n", t.Level, t.Message)
	})()
	defer bus.UserBanned.Subscribe(func(e notify.UserBanned) {
		fmt.Fprintln(stderr, e.Message)
		if e.BanReason != "" {
			fmt.Fprintln(stderr, "Reason:", e.BanReason)
		}
	})()
	defer bus.VerificationRequired.Subscribe(func(e notify.VerificationRequired) {
		fmt.Fprintln(stderr, e.Message)
	})()

	client := apiclient.New(cfg.APIURL, session.NewManager(store), bus,
		apiclient.WithNavigator(terminal{w: stderr}),
		apiclient.WithLoginPath(cfg.LoginPath))

	a := &app{cfg: cfg, api: service.New(client), bus: bus, stdin: stdin, stdout: stdout}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "contact":
		return a.contact(ctx, rest)
	case "enquiries":
		return a.enquiries(ctx)
	case "events":
		return a.events(ctx, rest)
	case "chat":
		return a.chat(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("EVENTHUB_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (a *app) logout() error {
	if err := a.api.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *app) whoami() error {
	s, ok := a.api.Client().Sessions().Get()
	if !ok {
		fmt.Fprintln(a.stdout, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.stdout, "%s <%s> %s %s\n", s.Name, s.Email, s.Role, s.UserID)
	return nil
}

func (a *app) contact(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("contact", flag.ContinueOnError)
	var v model.ContactRequest
	fs.StringVar(&v.Name, "name", "", "your name")
	fs.StringVar(&v.Email, "email", "", "reply address")
	fs.StringVar(&v.Subject, "subject", "Other", "subject")
	fs.StringVar(&v.Message, "message", "", "message")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := service.NewContactForm(a.api)
	form.SetValues(v)
	return form.Submit(ctx)
}

func (a *app) enquiries(ctx context.Context) error {
	list, err := a.api.ListEnquiries(ctx)
	if err != nil {
		return err
	}

	table := newTable(a.stdout, "ID", "Venue", "Status", "Created")
	for _, e := range list {
		table.Append([]string{e.ID, e.VenueName, e.Status, e.CreatedAt.Local().Format(time.DateTime)})
	}
	table.Render()
	return nil
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	var f service.EventFilter
	fs.StringVar(&f.Query, "q", "", "search text")
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.City, "city", "", "city")
	fs.IntVar(&f.Page, "page", 0, "page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.api.ListEvents(ctx, f)
	if err != nil {
		return err
	}

	table := newTable(a.stdout, "ID", "Title", "City", "Starts", "Refund now")
	now := time.Now()
	for _, e := range list {
		table.Append([]string{
			e.ID,
			e.Title,
			e.City,
			e.StartsAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d%%", service.RefundPercent(e.StartsAt, now)),
		})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	return table
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	requestID := fs.String("request", "", "enquiry id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	chat := venuechat.New(a.api.Client(), venuechat.Config{
		RequestID:  *requestID,
		WSURL:      a.cfg.WSURL,
		TypingIdle: a.cfg.TypingIdle,
		Logger:     slog.Default(),
	})

	var (
		mu      sync.Mutex
		printed int
		typing  string
	)
	defer chat.OnChange(func() {
		mu.Lock()
		defer mu.Unlock()

		msgs := chat.Messages()
		for _, m := range msgs[min(printed, len(msgs)):] {
			fmt.Fprintf(a.stdout, "%s %s: %s\n", m.SentAt.Local().Format(time.TimeOnly), m.SenderName, m.Text)
		}
		printed = len(msgs)

		names := make([]string, 0)
		for _, u := range chat.Typing() {
			names = append(names, u.UserName)
		}
		if now := strings.Join(names, ", "); now != typing {
			typing = now
			if now != "" {
				fmt.Fprintf(a.stdout, "(%s typing...)\n", now)
			}
		}
	})()

	if err := chat.Mount(ctx); err != nil {
		return err
	}
	defer chat.Unmount()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			chat.Input(line)
			err := chat.Send(ctx, line)
			if err != nil && !errors.Is(err, venuechat.ErrNotConnected) {
				return err
			}
		}
	}
}
