package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/johndosdos/eventhub/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("internal/database: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("internal/database: goose up: %w", err)
	}
	return nil
}

// Reset rolls back every migration. Used by tests.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("internal/database: goose dialect: %w", err)
	}
	if err := goose.ResetContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("internal/database: goose reset: %w", err)
	}
	return nil
}

const userColumns = `id::text, name, email, role, verified, banned_at, ban_reason, created_at`

func scanUser(row pgx.Row, extra ...any) (model.User, error) {
	var u model.User
	dest := append([]any{&u.ID, &u.Name, &u.Email, &u.Role, &u.Verified, &u.BannedAt, &u.BanReason, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user model.User, hashedPassword string) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, role, verified, hashed_password)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		user.ID, user.Name, user.Email, user.Role, user.Verified, hashedPassword)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("internal/database: create user: %w", err)
	}
	return created, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, ErrNotFound
	}
	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, id)
	return scanUser(row)
}

func (p *Postgres) GetUserWithPasswordByEmail(ctx context.Context, email string) (model.User, string, error) {
	var hash string
	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+`, hashed_password FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row, &hash)
	if err != nil {
		return model.User{}, "", err
	}
	return u, hash, nil
}

func (p *Postgres) BanUser(ctx context.Context, id, reason string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `UPDATE users SET banned_at = $2, ban_reason = $3 WHERE id = $1::uuid`, id, at.UTC(), reason)
	if err != nil {
		return fmt.Errorf("internal/database: ban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UnbanUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `UPDATE users SET banned_at = NULL, ban_reason = '' WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("internal/database: unban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) VerifyUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `UPDATE users SET verified = TRUE WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("internal/database: verify user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const enquiryColumns = `id::text, organizer_id::text, partner_id::text, venue_name, status, created_at`

func scanEnquiry(row pgx.Row) (model.Enquiry, error) {
	var e model.Enquiry
	if err := row.Scan(&e.ID, &e.OrganizerID, &e.PartnerID, &e.VenueName, &e.Status, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Enquiry{}, ErrNotFound
		}
		return model.Enquiry{}, err
	}
	return e, nil
}

func (p *Postgres) CreateEnquiry(ctx context.Context, e model.Enquiry) (model.Enquiry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = "pending"
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO enquiries (id, organizer_id, partner_id, venue_name, status)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5)
		RETURNING `+enquiryColumns,
		e.ID, e.OrganizerID, e.PartnerID, e.VenueName, e.Status)

	created, err := scanEnquiry(row)
	if err != nil {
		return model.Enquiry{}, fmt.Errorf("internal/database: create enquiry: %w", err)
	}
	return created, nil
}

func (p *Postgres) GetEnquiry(ctx context.Context, id string) (model.Enquiry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Enquiry{}, ErrNotFound
	}
	return scanEnquiry(p.pool.QueryRow(ctx, `SELECT `+enquiryColumns+` FROM enquiries WHERE id = $1::uuid`, id))
}

func (p *Postgres) ListEnquiriesForUser(ctx context.Context, userID string) ([]model.Enquiry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+enquiryColumns+` FROM enquiries
		WHERE organizer_id = $1::uuid OR partner_id = $1::uuid
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("internal/database: list enquiries: %w", err)
	}
	defer rows.Close()

	out := make([]model.Enquiry, 0)
	for rows.Next() {
		e, err := scanEnquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("internal/database: scan enquiry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateVenueMessage bumps the enquiry's sequence counter and inserts the
// message in one transaction so seq values never collide.
func (p *Postgres) CreateVenueMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	msg.ID = uuid.NewString()

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE enquiries SET last_seq = last_seq + 1
			WHERE id = $1::uuid
			RETURNING last_seq`, msg.RequestID).Scan(&msg.Seq)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO venue_messages (id, request_id, seq, sender_id, text)
			VALUES ($1::uuid, $2::uuid, $3, $4::uuid, $5)
			RETURNING sent_at`,
			msg.ID, msg.RequestID, msg.Seq, msg.SenderID, msg.Text).Scan(&msg.SentAt)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatMessage{}, err
		}
		return model.ChatMessage{}, fmt.Errorf("internal/database: create venue message: %w", err)
	}
	return msg, nil
}

func (p *Postgres) ListVenueMessages(ctx context.Context, requestID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := p.pool.Query(ctx, `
		SELECT * FROM (
			SELECT m.id::text, m.request_id::text, m.sender_id::text, u.name, m.text, m.sent_at, m.seq
			FROM venue_messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.request_id = $1::uuid
			ORDER BY m.seq DESC
			LIMIT $2
		) recent ORDER BY seq ASC`, requestID, limit)
	if err != nil {
		return nil, fmt.Errorf("internal/database: list venue messages: %w", err)
	}
	defer rows.Close()

	out := make([]model.ChatMessage, 0, limit)
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.RequestID, &m.SenderID, &m.SenderName, &m.Text, &m.SentAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("internal/database: scan venue message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateContact(ctx context.Context, c model.ContactMessage) (model.ContactMessage, error) {
	c.ID = uuid.NewString()
	err := p.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, name, email, subject, message)
		VALUES ($1::uuid, $2, $3, $4, $5)
		RETURNING status, created_at`,
		c.ID, c.Name, c.Email, c.Subject, c.Message).Scan(&c.Status, &c.CreatedAt)
	if err != nil {
		return model.ContactMessage{}, fmt.Errorf("internal/database: create contact: %w", err)
	}
	return c, nil
}
