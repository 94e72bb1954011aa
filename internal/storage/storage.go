// Package storage provides SQLite-backed persistence for draws and saved bets.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rewired-gh/lottosmart/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/lottosmart/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "lottosmart", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping() error {
	return s.db.Ping()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS draws (
			game                 TEXT    NOT NULL,
			draw_number          INTEGER NOT NULL,
			draw_date            TEXT    NOT NULL DEFAULT '',
			numbers              TEXT    NOT NULL,
			second_numbers       TEXT    NOT NULL DEFAULT '[]',
			accumulated          INTEGER NOT NULL DEFAULT 0,
			accumulated_amount   REAL    NOT NULL DEFAULT 0,
			next_draw_number     INTEGER NOT NULL DEFAULT 0,
			next_draw_date       TEXT    NOT NULL DEFAULT '',
			estimated_next_prize REAL    NOT NULL DEFAULT 0,
			prizes               TEXT    NOT NULL DEFAULT '[]',
			fetched_at           INTEGER NOT NULL,
			PRIMARY KEY (game, draw_number)
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id           TEXT PRIMARY KEY,
			game         TEXT    NOT NULL,
			numbers      TEXT    NOT NULL,
			strategy     TEXT    NOT NULL,
			explanation  TEXT    NOT NULL DEFAULT '',
			content_hash TEXT    NOT NULL UNIQUE,
			created_at   INTEGER NOT NULL,
			checked      INTEGER NOT NULL DEFAULT 0,
			result       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_game_created ON bets(game, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_checked ON bets(checked)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDraw stores a draw keyed by (game, draw number). Re-upserting identical
// content only moves fetched_at.
func (s *Storage) UpsertDraw(d *models.Draw) error {
	if d.Game == "" || d.Number <= 0 {
		return fmt.Errorf("invalid draw key (%q, %d)", d.Game, d.Number)
	}
	numbers, err := json.Marshal(nonNil(d.Numbers))
	if err != nil {
		return fmt.Errorf("failed to marshal numbers: %w", err)
	}
	second, err := json.Marshal(nonNil(d.SecondNumbers))
	if err != nil {
		return fmt.Errorf("failed to marshal second numbers: %w", err)
	}
	prizes := d.Prizes
	if prizes == nil {
		prizes = []models.PrizeRow{}
	}
	prizesJSON, err := json.Marshal(prizes)
	if err != nil {
		return fmt.Errorf("failed to marshal prizes: %w", err)
	}
	fetchedAt := d.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err = s.db.Exec(`
		INSERT INTO draws
			(game, draw_number, draw_date, numbers, second_numbers, accumulated,
			 accumulated_amount, next_draw_number, next_draw_date, estimated_next_prize,
			 prizes, fetched_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(game, draw_number) DO UPDATE SET
			draw_date=excluded.draw_date,
			numbers=excluded.numbers,
			second_numbers=excluded.second_numbers,
			accumulated=excluded.accumulated,
			accumulated_amount=excluded.accumulated_amount,
			next_draw_number=excluded.next_draw_number,
			next_draw_date=excluded.next_draw_date,
			estimated_next_prize=excluded.estimated_next_prize,
			prizes=excluded.prizes,
			fetched_at=excluded.fetched_at`,
		d.Game, d.Number, d.Date, string(numbers), string(second), boolToInt(d.Accumulated),
		d.AccumulatedAmount, d.NextDrawNumber, d.NextDrawDate, d.EstimatedNextPrize,
		string(prizesJSON), fetchedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert draw: %w", err)
	}
	return nil
}

// GetDraw returns the cached draw, or nil when absent.
func (s *Storage) GetDraw(game string, number int) (*models.Draw, error) {
	row := s.db.QueryRow(`SELECT `+drawCols+` FROM draws WHERE game = ? AND draw_number = ?`, game, number)
	d, err := scanDraw(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	return d, nil
}

// RecentDraws returns up to limit draws of game, newest draw number first.
func (s *Storage) RecentDraws(game string, limit int) ([]models.Draw, error) {
	rows, err := s.db.Query(`SELECT `+drawCols+` FROM draws WHERE game = ?
		ORDER BY draw_number DESC LIMIT ?`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	draws := []models.Draw{}
	for rows.Next() {
		d, err := scanDraw(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, *d)
	}
	return draws, rows.Err()
}

// InsertBet persists a saved bet. The unique content_hash column makes the
// duplicate check atomic; a collision is reported as models.ErrDuplicateBet.
func (s *Storage) InsertBet(b *models.Bet) error {
	numbers, err := json.Marshal(nonNil(b.Numbers))
	if err != nil {
		return fmt.Errorf("failed to marshal numbers: %w", err)
	}
	result, err := marshalResult(b.Result)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO bets
			(id, game, numbers, strategy, explanation, content_hash, created_at, checked, result)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Game, string(numbers), b.Strategy, b.Explanation, b.Hash,
		b.CreatedAt.UnixNano(), boolToInt(b.Checked), result,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: hash %s", models.ErrDuplicateBet, b.Hash)
		}
		return fmt.Errorf("failed to insert bet: %w", err)
	}
	return nil
}

// GetBet returns the bet with id, or models.ErrBetNotFound.
func (s *Storage) GetBet(id string) (*models.Bet, error) {
	row := s.db.QueryRow(`SELECT `+betCols+` FROM bets WHERE id = ?`, id)
	b, err := scanBet(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrBetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return b, nil
}

// FindBets returns bets matching f, newest first. A zero limit means no limit.
func (s *Storage) FindBets(f models.BetFilter) ([]models.Bet, error) {
	where, args := betWhere(f)
	query := `SELECT ` + betCols + ` FROM bets` + where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	bets := []models.Bet{}
	for rows.Next() {
		b, err := scanBet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

// UpdateBetResult attaches a match result and marks the bet checked.
func (s *Storage) UpdateBetResult(id string, r *models.MatchResult) error {
	result, err := marshalResult(r)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE bets SET checked = 1, result = ? WHERE id = ?`, result, id)
	if err != nil {
		return fmt.Errorf("failed to update bet: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrBetNotFound, id)
	}
	return nil
}

// DeleteBet removes one bet by id.
func (s *Storage) DeleteBet(id string) error {
	res, err := s.db.Exec(`DELETE FROM bets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bet: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrBetNotFound, id)
	}
	return nil
}

// DeleteBets removes every bet matching f and reports how many were removed.
func (s *Storage) DeleteBets(f models.BetFilter) (int, error) {
	where, args := betWhere(f)
	res, err := s.db.Exec(`DELETE FROM bets`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bets: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const drawCols = `game, draw_number, draw_date, numbers, second_numbers, accumulated,
	accumulated_amount, next_draw_number, next_draw_date, estimated_next_prize, prizes, fetched_at`

func scanDraw(scan func(...any) error) (*models.Draw, error) {
	var d models.Draw
	var numbers, second, prizes string
	var accumulated int
	var fetchedAtNano int64
	err := scan(
		&d.Game, &d.Number, &d.Date, &numbers, &second, &accumulated,
		&d.AccumulatedAmount, &d.NextDrawNumber, &d.NextDrawDate, &d.EstimatedNextPrize,
		&prizes, &fetchedAtNano,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(numbers), &d.Numbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal numbers: %w", err)
	}
	if err := json.Unmarshal([]byte(second), &d.SecondNumbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal second numbers: %w", err)
	}
	if len(d.SecondNumbers) == 0 {
		d.SecondNumbers = nil
	}
	if err := json.Unmarshal([]byte(prizes), &d.Prizes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prizes: %w", err)
	}
	if len(d.Prizes) == 0 {
		d.Prizes = nil
	}
	d.Accumulated = accumulated != 0
	d.FetchedAt = time.Unix(0, fetchedAtNano)
	return &d, nil
}

const betCols = `id, game, numbers, strategy, explanation, content_hash, created_at, checked, result`

func scanBet(scan func(...any) error) (*models.Bet, error) {
	var b models.Bet
	var numbers string
	var result sql.NullString
	var createdAtNano int64
	var checked int
	err := scan(
		&b.ID, &b.Game, &numbers, &b.Strategy, &b.Explanation, &b.Hash,
		&createdAtNano, &checked, &result,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(numbers), &b.Numbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal numbers: %w", err)
	}
	if result.Valid && result.String != "" {
		var r models.MatchResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		b.Result = &r
	}
	b.CreatedAt = time.Unix(0, createdAtNano)
	b.Checked = checked != 0
	return &b, nil
}

func betWhere(f models.BetFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Game != "" {
		conds = append(conds, "game = ?")
		args = append(args, f.Game)
	}
	if f.UncheckedOnly {
		conds = append(conds, "checked = 0")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalResult(r *models.MatchResult) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nonNil(nums []int) []int {
	if nums == nil {
		return []int{}
	}
	return nums
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
