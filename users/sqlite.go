package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const userColumns = `id, url, authorization_endpoint, token_endpoint,
micropub_endpoint, micropub_media_endpoint, micropub_syndication_targets,
micropub_config_error, micropub_access_token, micropub_scope, micropub_response, last_login, date_created`

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens, creating if needed, the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(migrations, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var (
		u                    User
		lastLogin, createdAt int64
	)

	err := row.Scan(&u.ID, &u.URL, &u.AuthorizationEndpoint, &u.TokenEndpoint,
		&u.MicropubEndpoint, &u.MicropubMediaEndpoint, &u.SyndicationTargets,
		&u.ConfigError, &u.AccessToken, &u.Scope, &u.TokenResponse, &lastLogin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.LastLogin = fromMillis(lastLogin)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (s *SQLite) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLite) FindByURL(ctx context.Context, url string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE url = ?`, url))
}

func (s *SQLite) Create(ctx context.Context, url string, now time.Time) (*User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, url, last_login, date_created) VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING`,
		uuid.NewString(), url, toMillis(now), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.FindByURL(ctx, url)
}

func (s *SQLite) Save(ctx context.Context, u *User) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET
		url = ?,
		authorization_endpoint = ?,
		token_endpoint = ?,
		micropub_endpoint = ?,
		micropub_media_endpoint = ?,
		micropub_syndication_targets = ?,
		micropub_config_error = ?,
		micropub_access_token = ?,
		micropub_scope = ?,
		micropub_response = ?,
		last_login = ?,
		date_created = ?
		WHERE id = ?`,
		u.URL, u.AuthorizationEndpoint, u.TokenEndpoint, u.MicropubEndpoint,
		u.MicropubMediaEndpoint, u.SyndicationTargets, u.ConfigError, u.AccessToken, u.Scope,
		u.TokenResponse, toMillis(u.LastLogin), toMillis(u.CreatedAt), u.ID)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

var _ Store = (*SQLite)(nil)
