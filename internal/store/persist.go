package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	keySession  = "session"
	keyLanguage = "language"
	keyStatus   = "list.status"
	keySort     = "list.sort"
)

// Persistence keeps the session, language and list preferences in a local
// SQLite file so they survive between runs.
type Persistence struct {
	db *sql.DB
}

// Open opens or creates the state file at path.
func Open(ctx context.Context, path string) (*Persistence, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Persistence{db: db}, nil
}

// Close releases the database handle.
func (p *Persistence) Close() error {
	return p.db.Close()
}

// Load rebuilds the persisted part of the state on top of Initial.
// Unreadable entries are skipped.
func (p *Persistence) Load(ctx context.Context) (State, error) {
	state := Initial()
	values, err := p.all(ctx)
	if err != nil {
		return state, err
	}

	if raw, ok := values[keySession]; ok {
		var session models.Session
		if err := json.Unmarshal([]byte(raw), &session); err == nil && session.AccessToken != "" {
			state.Session = &session
		}
	}
	if lang, ok := values[keyLanguage]; ok && SupportedLanguage(lang) {
		state.Language = lang
	}
	if status, ok := values[keyStatus]; ok {
		if selector, err := issueview.ParseSelector(status); err == nil {
			state.Query.Status = selector
		}
	}
	if raw, ok := values[keySort]; ok {
		if key, err := issueview.ParseSortKey(raw); err == nil {
			state.Query.Sort = key
		}
	}
	return state, nil
}

// Save writes the persisted part of state. A nil session removes the stored one.
func (p *Persistence) Save(ctx context.Context, state State) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if state.Session != nil {
		payload, err := json.Marshal(state.Session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		if err := put(ctx, tx, keySession, string(payload)); err != nil {
			return err
		}
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, keySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if err := put(ctx, tx, keyLanguage, state.Language); err != nil {
		return err
	}
	if err := put(ctx, tx, keyStatus, state.Query.Status); err != nil {
		return err
	}
	if err := put(ctx, tx, keySort, string(state.Query.Sort)); err != nil {
		return err
	}
	return tx.Commit()
}

func put(ctx context.Context, tx *sql.Tx, key, value string) error {
	const query = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (p *Persistence) all(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return values, nil
}
