package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
)

// MaxAmount is the largest magnitude a single entry can hold; dhikar_count
// is a 32-bit column.
const MaxAmount = math.MaxInt32

var (
	ErrCounterNotFound = errors.New("counter not found")
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrCounterExists   = errors.New("counter already exists for this group and topic")
)

// Ledger is the set of ledger and aggregation operations. Inside InTx every
// call runs on the same transaction.
type Ledger interface {
	ResolveCounter(ctx context.Context, groupID, topicID int64) (int64, bool, error)
	AppendEntry(ctx context.Context, counterID, userID, amount int64) (int64, error)
	RetractEntry(ctx context.Context, counterID, userID, amount int64) (bool, error)
	TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error)
	Leaderboard(ctx context.Context, counterID int64) ([]models.Contributor, error)
}

// TxLedger runs a unit of work atomically against a Ledger.
type TxLedger interface {
	InTx(ctx context.Context, fn func(Ledger) error) error
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LedgerStore is the Postgres-backed ledger. It holds no package state; the
// caller constructs it with an open pool and closes the pool on shutdown.
type LedgerStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{
		db:  db,
		now: time.Now,
	}
}

// InTx runs fn inside one transaction, committing only if fn returns nil.
func (s *LedgerStore) InTx(ctx context.Context, fn func(Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{q: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (s *LedgerStore) ResolveCounter(ctx context.Context, groupID, topicID int64) (int64, bool, error) {
	return s.queries().ResolveCounter(ctx, groupID, topicID)
}

func (s *LedgerStore) AppendEntry(ctx context.Context, counterID, userID, amount int64) (int64, error) {
	return s.queries().AppendEntry(ctx, counterID, userID, amount)
}

// RetractEntry always runs in its own transaction so the row lock taken by
// the lookup is held until the delete commits.
func (s *LedgerStore) RetractEntry(ctx context.Context, counterID, userID, amount int64) (bool, error) {
	var removed bool
	err := s.InTx(ctx, func(l Ledger) error {
		var err error
		removed, err = l.RetractEntry(ctx, counterID, userID, amount)
		return err
	})
	return removed, err
}

func (s *LedgerStore) TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error) {
	return s.queries().TotalAndTitle(ctx, counterID)
}

func (s *LedgerStore) Leaderboard(ctx context.Context, counterID int64) ([]models.Contributor, error) {
	return s.queries().Leaderboard(ctx, counterID)
}

func (s *LedgerStore) queries() *ledgerTx {
	return &ledgerTx{q: s.db, now: s.now}
}

type ledgerTx struct {
	q   queryer
	now func() time.Time
}

// ResolveCounter is an exact-match lookup. A missing counter is reported
// through the bool, never as an error.
func (l *ledgerTx) ResolveCounter(ctx context.Context, groupID, topicID int64) (int64, bool, error) {
	var id int64
	err := l.q.QueryRowContext(ctx, `
		SELECT id
		FROM dhikar_type
		WHERE group_id = $1 AND dhikar_topic_id = $2`,
		groupID, topicID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve counter: %w", err)
	}
	return id, true, nil
}

// AppendEntry inserts one contribution. Identical calls insert identical rows.
func (l *ledgerTx) AppendEntry(ctx context.Context, counterID, userID, amount int64) (int64, error) {
	if amount <= 0 || amount > MaxAmount {
		return 0, ErrInvalidAmount
	}

	var entryID int64
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO dhikar_entry (user_id, dhikar_count, dhikar_type_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING entry_id`,
		userID, amount, counterID, l.now()).Scan(&entryID)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}
	return entryID, nil
}

// RetractEntry deletes the newest entry by userID on counterID whose amount
// equals amount exactly. It never splits or combines entries.
func (l *ledgerTx) RetractEntry(ctx context.Context, counterID, userID, amount int64) (bool, error) {
	if amount <= 0 || amount > MaxAmount {
		return false, ErrInvalidAmount
	}

	// A transaction that waited on this lock while another deleted the row
	// finds no row and reports false, even if an older match exists.
	var entryID int64
	err := l.q.QueryRowContext(ctx, `
		SELECT entry_id
		FROM dhikar_entry
		WHERE dhikar_type_id = $1 AND user_id = $2 AND dhikar_count = $3
		ORDER BY entry_id DESC
		LIMIT 1
		FOR UPDATE`,
		counterID, userID, amount).Scan(&entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find entry to retract: %w", err)
	}

	result, err := l.q.ExecContext(ctx, `
		DELETE FROM dhikar_entry
		WHERE entry_id = $1`, entryID)
	if err != nil {
		return false, fmt.Errorf("retract entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	// Another retraction removed the row between lookup and delete.
	return rowsAffected == 1, nil
}
