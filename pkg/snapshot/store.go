package snapshot

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/intcode/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.snapshot")

// ErrNotFound indicates the named snapshot doesn't exist.
var ErrNotFound = errors.New("snapshot not found")

// Entry describes a stored snapshot without decoding it.
type Entry struct {
	Name   string
	Digest string // hex SHA-256 of the encoded image
	ISA    string
	State  intcode.State
	Steps  uint64
	Size   int
	Saved  time.Time
}

// Store keeps named machine images in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		name     TEXT PRIMARY KEY,
		digest   TEXT NOT NULL,
		isa      TEXT NOT NULL,
		state    INTEGER NOT NULL,
		steps    INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		data     BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Infof("snapshot store open: %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores the machine's current image under name, replacing any
// previous snapshot with that name.
func (s *Store) Save(ctx context.Context, name string, m *intcode.Machine) (Entry, error) {
	return s.Put(ctx, name, m.Image())
}

// Put stores an image under name.
func (s *Store) Put(ctx context.Context, name string, img intcode.Image) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("saving snapshot: empty name")
	}
	data, err := Marshal(img)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding snapshot %q: %w", name, err)
	}
	sum := Digest(data)
	e := Entry{
		Name:   name,
		Digest: hex.EncodeToString(sum[:]),
		ISA:    img.ISA,
		State:  img.State,
		Steps:  img.Steps,
		Size:   len(data),
		Saved:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (name, digest, isa, state, steps, saved_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Digest, e.ISA, int64(e.State), int64(e.Steps), e.Saved.UnixNano(), data,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	log.Debugf("saved snapshot %s (%d bytes, %s)", name, e.Size, e.Digest[:12])
	return e, nil
}

// Load restores the named snapshot into a new machine.
func (s *Store) Load(ctx context.Context, name string, opts ...intcode.Option) (*intcode.Machine, error) {
	img, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := intcode.FromImage(img, opts...)
	if err != nil {
		return nil, fmt.Errorf("restoring snapshot %q: %w", name, err)
	}
	return m, nil
}

// Get returns the named image.
func (s *Store) Get(ctx context.Context, name string) (intcode.Image, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return intcode.Image{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return intcode.Image{}, fmt.Errorf("querying snapshot %q: %w", name, err)
	}
	return Unmarshal(data)
}

// List returns every stored snapshot, ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, digest, isa, state, steps, saved_at, length(data) FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			state, steps int64
			saved        int64
		)
		if err := rows.Scan(&e.Name, &e.Digest, &e.ISA, &state, &steps, &saved, &e.Size); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		e.State = intcode.State(state)
		e.Steps = uint64(steps)
		e.Saved = time.Unix(0, saved).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the named snapshot.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
