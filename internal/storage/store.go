package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database. Nothing is written to disk.
const MemoryDSN = ":memory:"

// CachedPrompt is a previously generated analysis prompt.
type CachedPrompt struct {
	Prompt    string
	Model     string
	CreatedAt time.Time
}

// PromptCache stores analysis prompts keyed by image hash.
type PromptCache interface {
	GetPrompt(imageHash string) (*CachedPrompt, error)
	SetPrompt(imageHash string, entry *CachedPrompt) error
	Close() error
}

// SQLiteStore implements PromptCache using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewMemoryStore creates a cache that lives only as long as the process.
func NewMemoryStore() (*SQLiteStore, error) {
	return NewSQLiteStore(MemoryDSN)
}

// NewSQLiteStore opens a SQLite database at dsn and creates the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database, so pin the pool to one.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS prompt_cache (
		image_hash TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		model TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create prompt_cache table: %w", err)
	}
	return nil
}

// GetPrompt retrieves a cached prompt by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetPrompt(imageHash string) (*CachedPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry CachedPrompt
	var model sql.NullString
	err := s.db.QueryRow(
		"SELECT prompt, model, created_at FROM prompt_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&entry.Prompt, &model, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt cache: %w", err)
	}

	entry.Model = model.String
	return &entry, nil
}

// SetPrompt stores a prompt in the cache, replacing any existing entry.
func (s *SQLiteStore) SetPrompt(imageHash string, entry *CachedPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO prompt_cache (image_hash, prompt, model)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			prompt = excluded.prompt,
			model = excluded.model,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, entry.Prompt, entry.Model)

	if err != nil {
		return fmt.Errorf("failed to cache prompt: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
