// Package words is the word-pair catalog: a small sqlite-backed store of
// {main, alt, category} triples with CRUD, category listing, and a random
// draw used once per game.
package words

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrEmptyCatalog is returned when a draw is requested and the catalog has
// no pairs at all.
var ErrEmptyCatalog = errors.New("the word catalog is empty")

// Pair is one drawn word pair. Polarity is resolved at draw time: Main is
// the civilian word and Alt the undercover word for this game, chosen 50/50
// independently of how the pair is stored, so repeated play never teaches
// players which stored word is "the civilian one".
type Pair struct {
	Main     string `json:"main"`
	Alt      string `json:"alt"`
	Category string `json:"category"`
}

// StoredPair is one catalog row as persisted.
type StoredPair struct {
	ID       int64  `json:"id"`
	Main     string `json:"main"`
	Alt      string `json:"alt"`
	Category string `json:"category"`
}

// CategoryCount is one category and how many pairs it holds.
type CategoryCount struct {
	Name  string `json:"name"`
	Pairs int    `json:"pairs"`
}

// Store is the sqlite-backed catalog. An empty path opens an in-memory
// database that lives for the process only. A single Store is shared by
// every room, so it is safe for concurrent use; mu guards the rng, which
// math/rand/v2 leaves unsynchronized.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStore opens (or creates) the catalog at path and seeds the starter
// pairs if the table is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening word catalog: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS pairs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		main TEXT NOT NULL,
		alt TEXT NOT NULL,
		category TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating word catalog schema: %w", err)
	}

	s := &Store{db: db, rng: newRand()}
	if err := s.seedIfEmpty(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedIfEmpty() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pairs`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO pairs (main, alt, category) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, p := range starterPairs {
		if _, err := stmt.Exec(p.Main, p.Alt, p.Category); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Add stores a new pair and returns its id.
func (s *Store) Add(main, alt, category string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO pairs (main, alt, category) VALUES (?, ?, ?)`,
		strings.TrimSpace(main), strings.TrimSpace(alt), strings.TrimSpace(category))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Delete removes a pair by id. Unknown ids are a no-op.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM pairs WHERE id = ?`, id)
	return err
}

// List returns every stored pair.
func (s *Store) List() ([]StoredPair, error) {
	rows, err := s.db.Query(`SELECT id, main, alt, category FROM pairs ORDER BY category, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []StoredPair
	for rows.Next() {
		var p StoredPair
		if err := rows.Scan(&p.ID, &p.Main, &p.Alt, &p.Category); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Categories lists every category with its pair count.
func (s *Store) Categories() ([]CategoryCount, error) {
	rows, err := s.db.Query(`SELECT category, COUNT(*) FROM pairs GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Name, &c.Pairs); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Draw picks one pair uniformly at random from the selected categories,
// with polarity randomized per call. An empty or unmatched selection falls
// back to the whole catalog rather than failing.
func (s *Store) Draw(categories []string) (Pair, error) {
	pair, err := s.drawFrom(categories)
	if errors.Is(err, sql.ErrNoRows) && len(categories) > 0 {
		pair, err = s.drawFrom(nil)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Pair{}, ErrEmptyCatalog
	}
	if err != nil {
		return Pair{}, err
	}

	s.mu.Lock()
	flip := s.rng.IntN(2) == 0
	s.mu.Unlock()

	if flip {
		pair.Main, pair.Alt = pair.Alt, pair.Main
	}
	return pair, nil
}

func (s *Store) drawFrom(categories []string) (Pair, error) {
	query := `SELECT main, alt, category FROM pairs`
	args := make([]any, 0, len(categories))
	if len(categories) > 0 {
		placeholders := strings.Repeat("?,", len(categories))
		query += ` WHERE category IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	var p Pair
	err := s.db.QueryRow(query, args...).Scan(&p.Main, &p.Alt, &p.Category)
	return p, err
}
