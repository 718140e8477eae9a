package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/The-Politico/crosswalk/errors"
)

// ApiUser is an opaque caller identity. The resolution engine only ever sees
// its ID as a nullable created_by reference; the token is interpreted solely
// by the transport layer's auth middleware.
type ApiUser struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
	Created  time.Time `json:"created"`
}

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 20
)

// UserStore persists API users and their tokens.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a SQLite-backed API user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create registers a new API user with a freshly generated token. Duplicate
// usernames fail with ErrConflict.
func (s *UserStore) Create(ctx context.Context, username string) (*ApiUser, error) {
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	user := &ApiUser{
		ID:       uuid.New().String(),
		Username: username,
		Token:    token,
		Created:  time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO api_users (id, username, token, created) VALUES (?, ?, ?, ?)",
		user.ID, user.Username, user.Token, user.Created,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(errors.ErrConflict, "user %q already exists", username)
		}
		return nil, errors.Wrapf(err, "failed to create user %q", username)
	}
	return user, nil
}

// GetByToken resolves a token to its API user, failing with ErrNotFound for
// unknown tokens.
func (s *UserStore) GetByToken(ctx context.Context, token string) (*ApiUser, error) {
	user := &ApiUser{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, token, created FROM api_users WHERE token = ?", token,
	).Scan(&user.ID, &user.Username, &user.Token, &user.Created)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "unknown token")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up token")
	}
	return user, nil
}

// List returns all API users ordered by username.
func (s *UserStore) List(ctx context.Context) ([]ApiUser, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, token, created FROM api_users ORDER BY username")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []ApiUser
	for rows.Next() {
		var u ApiUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Token, &u.Created); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func generateToken() (string, error) {
	token := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "failed to generate token")
		}
		token[i] = tokenAlphabet[n.Int64()]
	}
	return string(token), nil
}
