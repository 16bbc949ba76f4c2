// Package store persists member records in a single document-style table over
// database/sql. Three drivers are supported: sqlite3 (mattn/go-sqlite3, the
// default), sqlite (modernc.org/sqlite, cgo-free) and pgx (Postgres).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver with database/sql
	_ "github.com/mattn/go-sqlite3"    // registers the sqlite3 driver with database/sql
	_ "modernc.org/sqlite"             // registers the pure-go sqlite driver with database/sql

	"github.com/go-ports/silsilah/internal/models"
)

// Driver names accepted by Open.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// ErrNotFound is returned when no record has the requested doc id.
var ErrNotFound = errors.New("member not found")

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Store wraps a *sql.DB holding the members table.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the store and initialises the schema. For the sqlite
// drivers dsn is a file path whose parent directory is created if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var conn string
	switch driver {
	case DriverSQLite3:
		if err := ensureDir(dsn); err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		conn = withParams(dsn, "_journal_mode=WAL&_busy_timeout=5000")
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		conn = withParams(dsn, "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("store.Open: pgx driver requires store.dsn")
		}
		conn = dsn
	default:
		return nil, fmt.Errorf("store.Open: %w: %q", ErrUnknownDriver, driver)
	}

	sqldb, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	s := &Store{db: sqldb, driver: driver}
	if err := s.createSchema(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("store.Open createSchema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

func ensureDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func withParams(dsn, params string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?" + params
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (s *Store) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
			doc_id      TEXT PRIMARY KEY,
			member_id   TEXT NOT NULL,
			name        TEXT NOT NULL,
			gender      TEXT NOT NULL,
			birth_year  INTEGER,
			death_year  INTEGER,
			is_deceased INTEGER NOT NULL DEFAULT 0,
			father_id   TEXT NOT NULL DEFAULT '',
			mother_id   TEXT NOT NULL DEFAULT '',
			spouse_ids  TEXT NOT NULL DEFAULT '[]',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS members_member_id ON members (member_id)`,
		`CREATE INDEX IF NOT EXISTS members_name ON members (name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("createSchema exec: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const memberColumns = `doc_id, member_id, name, gender, birth_year, death_year,
	is_deceased, father_id, mother_id, spouse_ids, created_at, updated_at`

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

// Insert stores m under a fresh doc id (unless m.DocID is already set) and
// returns that id. Zero timestamps are stamped with the current time. The
// domain id is not checked for uniqueness.
func (s *Store) Insert(ctx context.Context, m *models.Member) (string, error) {
	if m.DocID == "" {
		m.DocID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	spouses, err := encodeSpouses(m.SpouseIDs)
	if err != nil {
		return "", fmt.Errorf("Insert: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.DocID, m.ID, m.Name, string(m.Gender),
		nullableYear(m.BirthYear), nullableYear(m.DeathYear),
		boolInt(m.IsDeceased), m.FatherID, m.MotherID, spouses,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("Insert: %w", err)
	}
	return m.DocID, nil
}

// Update applies the non-nil fields of patch to the record with docID and
// stamps updated_at. Returns ErrNotFound if no such record exists.
func (s *Store) Update(ctx context.Context, docID string, patch *models.MemberPatch) error {
	sets := []string{"updated_at = ?"}
	params := []any{formatTime(time.Now().UTC())}

	if patch.ID != nil {
		sets = append(sets, "member_id = ?")
		params = append(params, strings.TrimSpace(*patch.ID))
	}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		params = append(params, *patch.Name)
	}
	if patch.Gender != nil {
		sets = append(sets, "gender = ?")
		params = append(params, string(models.ParseGender(*patch.Gender)))
	}
	switch {
	case patch.ClearBirthYear:
		sets = append(sets, "birth_year = NULL")
	case patch.BirthYear != nil:
		sets = append(sets, "birth_year = ?")
		params = append(params, int64(*patch.BirthYear))
	}
	switch {
	case patch.ClearDeathYear:
		sets = append(sets, "death_year = NULL")
	case patch.DeathYear != nil:
		sets = append(sets, "death_year = ?")
		params = append(params, int64(*patch.DeathYear))
	}
	if patch.IsDeceased != nil {
		sets = append(sets, "is_deceased = ?")
		params = append(params, boolInt(*patch.IsDeceased))
	}
	if patch.FatherID != nil {
		sets = append(sets, "father_id = ?")
		params = append(params, strings.TrimSpace(*patch.FatherID))
	}
	if patch.MotherID != nil {
		sets = append(sets, "mother_id = ?")
		params = append(params, strings.TrimSpace(*patch.MotherID))
	}
	if patch.SpouseIDs != nil {
		spouses, err := encodeSpouses(*patch.SpouseIDs)
		if err != nil {
			return fmt.Errorf("Update: %w", err)
		}
		sets = append(sets, "spouse_ids = ?")
		params = append(params, spouses)
	}

	params = append(params, docID)
	updQ := "UPDATE members SET " + strings.Join(sets, ", ") + " WHERE doc_id = ?" // #nosec G202 -- SET clause columns are hardcoded; values flow through bound parameters
	res, err := s.db.ExecContext(ctx, s.rebind(updQ), params...)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return expectOne(res, "Update", docID)
}

// Delete removes the record with docID. Returns ErrNotFound if absent.
func (s *Store) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM members WHERE doc_id = ?`), docID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return expectOne(res, "Delete", docID)
}

// Get fetches a record by doc id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, docID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+memberColumns+` FROM members WHERE doc_id = ?`), docID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return m, nil
}

// GetByMemberID fetches the oldest record carrying the domain id.
// Returns ErrNotFound if none does.
func (s *Store) GetByMemberID(ctx context.Context, id string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+memberColumns+` FROM members
		WHERE member_id = ?
		ORDER BY created_at, doc_id
		LIMIT 1`), id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByMemberID %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByMemberID: %w", err)
	}
	return m, nil
}

// List returns every record ordered by name, as one consistent snapshot.
func (s *Store) List(ctx context.Context) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY name, created_at, doc_id`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()
	out, err := scanMembers(rows)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

// SearchByName returns up to limit records whose name contains query,
// case-insensitively, ordered by name.
func (s *Store) SearchByName(ctx context.Context, query string, limit int) ([]models.Member, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+memberColumns+` FROM members
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY name, created_at, doc_id
		LIMIT ?`), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchByName: %w", err)
	}
	defer rows.Close()
	out, err := scanMembers(rows)
	if err != nil {
		return nil, fmt.Errorf("SearchByName: %w", err)
	}
	return out, nil
}

// MemberIDs returns every domain id in the store, in no particular order.
func (s *Store) MemberIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member_id FROM members`)
	if err != nil {
		return nil, fmt.Errorf("MemberIDs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("MemberIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MemberIDs: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		m                    models.Member
		gender, spouses      string
		birthYear, deathYear sql.NullInt64
		deceased             int64
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&m.DocID, &m.ID, &m.Name, &gender, &birthYear, &deathYear,
		&deceased, &m.FatherID, &m.MotherID, &spouses, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	m.Gender = models.ParseGender(gender)
	m.BirthYear = yearPtr(birthYear)
	m.DeathYear = yearPtr(deathYear)
	m.IsDeceased = deceased != 0
	if err := json.Unmarshal([]byte(spouses), &m.SpouseIDs); err != nil {
		return nil, fmt.Errorf("decode spouse_ids of %s: %w", m.DocID, err)
	}
	if m.SpouseIDs == nil {
		m.SpouseIDs = make([]string, 0)
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	m.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &m, nil
}

func scanMembers(rows *sql.Rows) ([]models.Member, error) {
	out := make([]models.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, op, docID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, docID, ErrNotFound)
	}
	return nil
}

func encodeSpouses(ids []string) (string, error) {
	if ids == nil {
		ids = make([]string, 0)
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullableYear(y *int) any {
	if y == nil {
		return nil
	}
	return int64(*y)
}

func yearPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	y := int(n.Int64)
	return &y
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
