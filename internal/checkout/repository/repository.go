package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
)

var ErrSessionNotFound = errors.New("checkout session not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending integration event row written in the same
// transaction as the state change it describes.
type OutboxEvent struct {
	ID          int64
	SessionID   string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error

	CreateSession(ctx context.Context, session *d.CheckoutSession) error
	GetSession(ctx context.Context, id string) (*d.CheckoutSession, error)
	GetOpenSessionByCartSession(ctx context.Context, cartSessionID string) (*d.CheckoutSession, error)
	UpdateShipping(ctx context.Context, id string, details *d.ShippingDetails, step d.Step) error
	SetStep(ctx context.Context, id string, step d.Step) error
	SetPaymentIntent(ctx context.Context, id string, status d.CheckoutStatus, intentID, clientSecret string, snapshot *d.CartSnapshot) error
	UpdateStatus(ctx context.Context, id string, status d.CheckoutStatus) error
	CompleteSession(ctx context.Context, id string, status d.CheckoutStatus, eventPayload []byte) error
	CancelSession(ctx context.Context, id string) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
	GetStuckSessions(ctx context.Context) ([]*d.CheckoutSession, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle so the process can share one postgres
// connection pool across repositories.
func (r *Repository) DB() *sql.DB {
	return r.db
}

const sessionColumns = `id, cart_session_id, step, status, shipping, cart_snapshot,
	payment_intent_id, client_secret, created_at, updated_at`

func (r *Repository) CreateSession(ctx context.Context, session *d.CheckoutSession) error {
	query := `INSERT INTO checkout_sessions
	          (id, cart_session_id, step, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.CartSessionID, string(session.Step), session.Status.String())
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*d.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetOpenSessionByCartSession(ctx context.Context, cartSessionID string) (*d.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions
	          WHERE cart_session_id = $1
	            AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')
	          ORDER BY created_at DESC LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, cartSessionID))
}

func (r *Repository) UpdateShipping(ctx context.Context, id string, details *d.ShippingDetails, step d.Step) error {
	shippingJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal shipping details: %w", err)
	}

	query := `UPDATE checkout_sessions SET shipping = $2, step = $3, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, shippingJSON, string(step))
}

func (r *Repository) SetStep(ctx context.Context, id string, step d.Step) error {
	query := `UPDATE checkout_sessions SET step = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, string(step))
}

func (r *Repository) SetPaymentIntent(ctx context.Context, id string, status d.CheckoutStatus, intentID, clientSecret string, snapshot *d.CartSnapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	query := `UPDATE checkout_sessions
	          SET status = $2, payment_intent_id = $3, client_secret = $4,
	              cart_snapshot = $5, step = $6, updated_at = NOW()
	          WHERE id = $1`
	return r.exec(ctx, query, id, status.String(), intentID, clientSecret, snapshotJSON, string(d.StepPayment))
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status d.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, status.String())
}

// CompleteSession marks the session completed and enqueues the outbox event
// in the same transaction, so a completed order can never miss its event.
func (r *Repository) CompleteSession(ctx context.Context, id string, status d.CheckoutStatus, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status.String())
	if err != nil {
		return fmt.Errorf("complete checkout session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_outbox (session_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		id, "order.completed", eventPayload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) CancelSession(ctx context.Context, id string) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW()
	          WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')`
	return r.exec(ctx, query, id, d.CheckoutStatusCancelled.String())
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := `SELECT id, session_id, event_type, payload, created_at, processed_at
	          FROM checkout_outbox WHERE processed_at IS NULL
	          ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.SessionID, &event.EventType,
			&event.Payload, &event.CreatedAt, &event.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	query := `UPDATE checkout_outbox SET processed_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, eventID)
}

// GetStuckSessions finds completed sessions with no outbox row; the poller
// re-enqueues their events.
func (r *Repository) GetStuckSessions(ctx context.Context) ([]*d.CheckoutSession, error) {
	query := `SELECT ` + prefixColumns("s") + ` FROM checkout_sessions s
	          LEFT JOIN checkout_outbox o ON o.session_id = s.id
	          WHERE s.status = 'COMPLETED' AND o.id IS NULL`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*d.CheckoutSession
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// EnqueueEvent inserts an outbox row outside a completion transaction. Used
// by stuck-session recovery.
func (r *Repository) EnqueueEvent(ctx context.Context, sessionID, eventType string, payload []byte) error {
	query := `INSERT INTO checkout_outbox (session_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, NOW())`
	return r.exec(ctx, query, sessionID, eventType, payload)
}

func (r *Repository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*d.CheckoutSession, error) {
	session, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

func scanSessionRow(row rowScanner) (*d.CheckoutSession, error) {
	var session d.CheckoutSession
	var step, status string
	var shippingJSON, snapshotJSON []byte
	var intentID, clientSecret sql.NullString

	err := row.Scan(&session.ID, &session.CartSessionID, &step, &status,
		&shippingJSON, &snapshotJSON, &intentID, &clientSecret,
		&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	session.Step = d.Step(step)
	session.Status = d.CheckoutStatus(status)
	session.PaymentIntent = intentID.String
	session.ClientSecret = clientSecret.String

	if len(shippingJSON) > 0 {
		session.Shipping = &d.ShippingDetails{}
		if err := json.Unmarshal(shippingJSON, session.Shipping); err != nil {
			return nil, fmt.Errorf("unmarshal shipping details: %w", err)
		}
	}
	if len(snapshotJSON) > 0 {
		session.Snapshot = &d.CartSnapshot{}
		if err := json.Unmarshal(snapshotJSON, session.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
		}
	}

	return &session, nil
}

func prefixColumns(alias string) string {
	return alias + `.id, ` + alias + `.cart_session_id, ` + alias + `.step, ` + alias + `.status, ` +
		alias + `.shipping, ` + alias + `.cart_snapshot, ` + alias + `.payment_intent_id, ` +
		alias + `.client_secret, ` + alias + `.created_at, ` + alias + `.updated_at`
}
