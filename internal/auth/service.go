// Package auth registers player names and authenticates requests via
// UUID bearer tokens.
package auth

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNameTaken          = errors.New("player name already taken")
	ErrInvalidCredentials = errors.New("invalid player name or password")
	ErrInvalidName        = errors.New("invalid player name")
	ErrInvalidPassword    = errors.New("invalid password")
)

// Service issues and resolves player tokens. Register creates a new
// player and returns their token; Login verifies the password and
// rotates the token; Resolve maps a token back to the player name.
type Service interface {
	Register(name, password string) (token string, err error)
	Login(name, password string) (token string, err error)
	Resolve(token string) (name string, ok bool)
	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 4 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
