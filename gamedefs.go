package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Song is one entry in a game definition. The coordinator only ever
// sees an immutable snapshot of these, copied in at session start.
type Song struct {
	Title         string `json:"title"`
	CorrectAnswer string `json:"correct_answer"`
	AudioLocator  string `json:"audio_locator"`
}

// GameDefinition is an externally-owned quiz: a title and an ordered
// song list. Immutable for the lifetime of any session playing it.
type GameDefinition struct {
	ID      int64  `json:"id"`
	OwnerID string `json:"owner"`
	Title   string `json:"title"`
	Songs   []Song `json:"songs"`
}

// store persists user accounts and game definitions in sqlite. Session
// state never touches it; sessions are volatile by design.
type store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash BLOB NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS definitions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner      TEXT NOT NULL REFERENCES users(username),
	title      TEXT NOT NULL,
	songs      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_definitions_owner ON definitions(owner);
`

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &store{db: db}, nil
}

func (st *store) Close() error {
	return st.db.Close()
}

// CreateUser inserts an account with an already-hashed password.
func (st *store) CreateUser(ctx context.Context, username string, passwordHash []byte) error {
	_, err := st.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY KEY") {
			return errUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// PasswordHash returns the stored hash for a username, or
// errUnauthorized for unknown accounts so login failures are uniform.
func (st *store) PasswordHash(ctx context.Context, username string) ([]byte, error) {
	var hash []byte
	err := st.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return hash, nil
}

// CreateDefinition stores a new game definition and returns its ID.
func (st *store) CreateDefinition(ctx context.Context, def GameDefinition) (int64, error) {
	songs, err := json.Marshal(def.Songs)
	if err != nil {
		return 0, fmt.Errorf("encode songs: %w", err)
	}

	res, err := st.db.ExecContext(ctx,
		`INSERT INTO definitions (owner, title, songs, created_at) VALUES (?, ?, ?, ?)`,
		def.OwnerID, def.Title, string(songs), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("create definition: %w", err)
	}

	return res.LastInsertId()
}

// GameDefinition loads a definition by ID. Satisfies the read-only view
// the session coordinator consumes.
func (st *store) GameDefinition(ctx context.Context, id int64) (GameDefinition, error) {
	var (
		def   GameDefinition
		songs string
	)
	err := st.db.QueryRowContext(ctx,
		`SELECT id, owner, title, songs FROM definitions WHERE id = ?`, id,
	).Scan(&def.ID, &def.OwnerID, &def.Title, &songs)
	if errors.Is(err, sql.ErrNoRows) {
		return GameDefinition{}, errGameNotFound
	}
	if err != nil {
		return GameDefinition{}, fmt.Errorf("lookup definition: %w", err)
	}

	if err := json.Unmarshal([]byte(songs), &def.Songs); err != nil {
		return GameDefinition{}, fmt.Errorf("decode songs: %w", err)
	}
	return def, nil
}

// DefinitionsByOwner lists an owner's definitions, newest first.
func (st *store) DefinitionsByOwner(ctx context.Context, owner string) ([]GameDefinition, error) {
	rows, err := st.db.QueryContext(ctx,
		`SELECT id, owner, title, songs FROM definitions WHERE owner = ? ORDER BY id DESC`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []GameDefinition
	for rows.Next() {
		var (
			def   GameDefinition
			songs string
		)
		if err := rows.Scan(&def.ID, &def.OwnerID, &def.Title, &songs); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		if err := json.Unmarshal([]byte(songs), &def.Songs); err != nil {
			return nil, fmt.Errorf("decode songs: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// DeleteDefinition removes a definition if the requester owns it.
func (st *store) DeleteDefinition(ctx context.Context, id int64, owner string) error {
	res, err := st.db.ExecContext(ctx,
		`DELETE FROM definitions WHERE id = ? AND owner = ?`, id, owner,
	)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	if affected == 0 {
		return errGameNotFound
	}
	return nil
}
