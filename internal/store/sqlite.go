package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/gauntlet/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	winnerMu sync.Mutex // serializes winner inserts so ranks stay dense
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(dbPath string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		identity TEXT PRIMARY KEY,
		level INTEGER NOT NULL DEFAULT 1,
		attempts INTEGER NOT NULL DEFAULT 0,
		won INTEGER NOT NULL DEFAULT 0,
		introduced_level INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL,
		session_started_at INTEGER NOT NULL,
		session_warned INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sessions(last_active_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity TEXT NOT NULL REFERENCES sessions(identity) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		level INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_identity ON messages(identity, id);

	CREATE TABLE IF NOT EXISTS winners (
		identity TEXT PRIMARY KEY REFERENCES sessions(identity) ON DELETE CASCADE,
		completed_at INTEGER NOT NULL,
		total_attempts INTEGER NOT NULL,
		elapsed_seconds INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		prize_choice TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_winners_rank ON winners(rank);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const sessionColumns = `identity, level, attempts, won, introduced_level,
	created_at, last_active_at, session_started_at, session_warned`

func scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	var createdAt, lastActive, startedAt int64

	err := row.Scan(
		&sess.Identity, &sess.Level, &sess.Attempts, &sess.Won,
		&sess.IntroducedLevel, &createdAt, &lastActive, &startedAt,
		&sess.SessionWarned,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.LastActiveAt = time.Unix(lastActive, 0)
	sess.SessionStartedAt = time.Unix(startedAt, 0)
	return &sess, nil
}

// Load retrieves the session for an identity.
func (s *SQLiteStore) Load(ctx context.Context, identity string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE identity = ?`
	return scanSession(s.db.QueryRowContext(ctx, query, identity))
}

// Create inserts a fresh level-1 session. ON CONFLICT DO NOTHING keeps
// concurrent creates from producing two rows; the loser gets
// ErrSessionExists and should re-Load.
func (s *SQLiteStore) Create(ctx context.Context, identity string, now time.Time) (*domain.Session, error) {
	query := `
	INSERT INTO sessions (identity, level, attempts, won, introduced_level,
		created_at, last_active_at, session_started_at, session_warned)
	VALUES (?, 1, 0, 0, 0, ?, ?, ?, 0)
	ON CONFLICT(identity) DO NOTHING`

	ts := now.Unix()
	res, err := s.db.ExecContext(ctx, query, identity, ts, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrSessionExists
	}

	return &domain.Session{
		Identity:         identity,
		Level:            1,
		CreatedAt:        now,
		LastActiveAt:     now,
		SessionStartedAt: now,
	}, nil
}

// AppendMessage adds one log entry and bumps activity. The message is
// stamped with the session's current level; a user-role append also
// increments attempts and clears the warned flag, all in one
// transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, identity, role, content string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("AppendMessage rollback failed", "identity", identity, "error", rbErr)
		}
	}()

	var lvl int
	if err := tx.QueryRowContext(ctx, `SELECT level FROM sessions WHERE identity = ?`, identity).Scan(&lvl); err != nil {
		return fmt.Errorf("load session level: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (identity, role, content, level, created_at) VALUES (?, ?, ?, ?, ?)`,
		identity, role, content, lvl, now.Unix())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	update := `UPDATE sessions SET last_active_at = ? WHERE identity = ?`
	if role == domain.RoleUser {
		update = `UPDATE sessions SET last_active_at = ?, attempts = attempts + 1, session_warned = 0 WHERE identity = ?`
	}
	if _, err = tx.ExecContext(ctx, update, now.Unix(), identity); err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	return nil
}

// Messages returns the conversation log in chronological order.
func (s *SQLiteStore) Messages(ctx context.Context, identity string, limit int) ([]domain.Message, error) {
	query := `
		SELECT role, content, level, created_at
		FROM (
			SELECT id, role, content, level, created_at
			FROM messages WHERE identity = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unlimited
	}

	rows, err := s.db.QueryContext(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var ts int64
		if err := rows.Scan(&m.Role, &m.Content, &m.Level, &ts); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Timestamp = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// ApplyTurnResult atomically commits the pipeline outcome.
func (s *SQLiteStore) ApplyTurnResult(ctx context.Context, identity string, newLevel int, won bool, introducedLevel int, now time.Time) error {
	query := `
		UPDATE sessions
		SET level = ?, won = ?, introduced_level = ?, last_active_at = ?
		WHERE identity = ?`

	res, err := s.db.ExecContext(ctx, query, newLevel, won, introducedLevel, now.Unix(), identity)
	if err != nil {
		return fmt.Errorf("apply turn result: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("apply turn result: session %s not found", identity)
	}
	return nil
}

// StartNewSession resets the lifecycle window after an expiry.
func (s *SQLiteStore) StartNewSession(ctx context.Context, identity string, now time.Time) error {
	query := `
		UPDATE sessions
		SET session_started_at = ?, last_active_at = ?, session_warned = 0
		WHERE identity = ?`

	if _, err := s.db.ExecContext(ctx, query, now.Unix(), now.Unix(), identity); err != nil {
		return fmt.Errorf("start new session: %w", err)
	}
	return nil
}

// ListForWarning returns identities idle inside the warning window.
func (s *SQLiteStore) ListForWarning(ctx context.Context, now time.Time, warnAfter, timeout time.Duration) ([]string, error) {
	warnThreshold := now.Add(-warnAfter).Unix()
	timeoutThreshold := now.Add(-timeout).Unix()

	query := `
		SELECT identity FROM sessions
		WHERE last_active_at <= ? AND last_active_at > ?
		  AND session_warned = 0 AND won = 0`

	rows, err := s.db.QueryContext(ctx, query, warnThreshold, timeoutThreshold)
	if err != nil {
		return nil, fmt.Errorf("query sessions for warning: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close warning rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan warning row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warning rows: %w", err)
	}
	return ids, nil
}

// MarkWarned sets the warned flag, but only while the session is still
// idle as of asOf. A user message arriving after the sweep selected the
// identity bumps last_active_at and clears the flag; the stale mark must
// not stamp it back or the next legitimate warning would be suppressed.
func (s *SQLiteStore) MarkWarned(ctx context.Context, identity string, asOf time.Time) error {
	query := `UPDATE sessions SET session_warned = 1 WHERE identity = ? AND last_active_at <= ?`
	if _, err := s.db.ExecContext(ctx, query, identity, asOf.Unix()); err != nil {
		return fmt.Errorf("mark warned: %w", err)
	}
	return nil
}

// RecordWinner creates the winner row exactly once. The rank subquery
// and the insert run under winnerMu so two first-time winners cannot be
// assigned the same rank. Ranks advance from the highest ever assigned,
// not the row count, so a reset winner's slot is never reissued.
func (s *SQLiteStore) RecordWinner(ctx context.Context, identity string, totalAttempts, elapsedSeconds int, now time.Time) error {
	s.winnerMu.Lock()
	defer s.winnerMu.Unlock()

	query := `
	INSERT INTO winners (identity, completed_at, total_attempts, elapsed_seconds, rank)
	VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(rank), 0) + 1 FROM winners))
	ON CONFLICT(identity) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, identity, now.Unix(), totalAttempts, elapsedSeconds)
	if err != nil {
		return fmt.Errorf("record winner: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		slog.Debug("winner already recorded", "identity", identity)
	}
	return nil
}

// SetPrizeChoice attaches the winner's phone preference.
func (s *SQLiteStore) SetPrizeChoice(ctx context.Context, identity, choice string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE winners SET prize_choice = ? WHERE identity = ?`, choice, identity)
	if err != nil {
		return fmt.Errorf("set prize choice: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set prize choice: no winner record for %s", identity)
	}
	return nil
}

// Winners returns all winner records ordered by rank.
func (s *SQLiteStore) Winners(ctx context.Context) ([]domain.Winner, error) {
	query := `
		SELECT identity, completed_at, total_attempts, elapsed_seconds, rank, prize_choice
		FROM winners ORDER BY rank`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query winners: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close winner rows", "error", closeErr)
		}
	}()

	var winners []domain.Winner
	for rows.Next() {
		var w domain.Winner
		var completedAt int64
		var choice sql.NullString
		if err := rows.Scan(&w.Identity, &completedAt, &w.TotalAttempts, &w.ElapsedSeconds, &w.Rank, &choice); err != nil {
			return nil, fmt.Errorf("scan winner row: %w", err)
		}
		w.CompletedAt = time.Unix(completedAt, 0)
		w.PrizeChoice = choice.String
		winners = append(winners, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winners: %w", err)
	}
	return winners, nil
}

// Stats returns aggregate counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{LevelDistribution: make(map[int]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE won = 1`).Scan(&stats.Winners); err != nil {
		return nil, fmt.Errorf("count winners: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM sessions GROUP BY level`)
	if err != nil {
		return nil, fmt.Errorf("query level distribution: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stats rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var lvl, count int
		if err := rows.Scan(&lvl, &count); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		stats.LevelDistribution[lvl] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distribution rows: %w", err)
	}
	return stats, nil
}

// ResetAll deletes the session, its messages and any winner record.
func (s *SQLiteStore) ResetAll(ctx context.Context, identity string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("ResetAll rollback failed", "identity", identity, "error", rbErr)
		}
	}()

	for _, q := range []string{
		`DELETE FROM messages WHERE identity = ?`,
		`DELETE FROM winners WHERE identity = ?`,
		`DELETE FROM sessions WHERE identity = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, identity); err != nil {
			return fmt.Errorf("reset session state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}
