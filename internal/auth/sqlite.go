package auth

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const defaultSQLitePath = "pokerserver.db"

// SQLiteService stores accounts and tokens in SQLite.
type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	path := strings.TrimSpace(os.Getenv("AUTH_DATABASE_PATH"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STORE_DATABASE_PATH"))
	}
	if path == "" {
		path = defaultSQLitePath
	}
	return NewSQLiteService(path)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteAuthSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Register(name, password string) (string, error) {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := uuid.NewString()
	nowMs := time.Now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO accounts (name, password_hash, token, created_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?, ?)
`, name, string(passwordHash), token, nowMs, nowMs)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return "", ErrNameTaken
		}
		return "", err
	}
	return token, nil
}

func (s *SQLiteService) Login(name, password string) (string, error) {
	name = normalizeName(name)
	if name == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var passwordHash string
	err := s.db.QueryRowContext(ctx, `
SELECT password_hash FROM accounts WHERE name = ?
`, name).Scan(&passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	nowMs := time.Now().UTC().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
UPDATE accounts SET token = ?, last_login_at_ms = ? WHERE name = ?
`, token, nowMs, name); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteService) Resolve(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM accounts WHERE token = ?`, token).Scan(&name)
	if err != nil {
		return "", false
	}
	return name, true
}

func ensureSQLiteAuthSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
    name TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    token TEXT NOT NULL UNIQUE,
    created_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER NOT NULL
)`)
	return err
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
