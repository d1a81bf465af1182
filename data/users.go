package data

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrUserExists     = errors.New("username already exists")
	ErrBadCredentials = errors.New("invalid credentials")
)

// User is one registered account.
type User struct {
	ID       int64
	Username string
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CreateUser registers a new account and returns it.
func (s *Store) CreateUser(username, password string) (*User, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, password) VALUES (?, ?)`,
		username, hashPassword(password),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUserExists
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username}, nil
}

// Authenticate checks a username/password pair.
func (s *Store) Authenticate(username, password string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		`SELECT id, username FROM users WHERE username = ? AND password = ?`,
		username, hashPassword(password),
	).Scan(&u.ID, &u.Username)
	if err == sql.ErrNoRows {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
