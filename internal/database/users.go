package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// ErrUsernameTaken is returned by CreateUser on a unique violation.
var ErrUsernameTaken = errors.New("username already taken")

const uniqueViolation = "23505"

// UserStore reads and writes local accounts.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts u and fills in its ID and CreatedAt.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, is_active
	`, u.Username, u.PasswordHash).Scan(&userID, &u.CreatedAt, &u.IsActive)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrUsernameTaken
		}
		return err
	}

	u.ID = userID.String()
	return nil
}

// FindUserByUsername matches case-insensitively and skips inactive accounts.
// It returns (nil, nil) when nothing matches.
func (s *UserStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var (
		user   models.User
		userID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, is_active
		FROM users
		WHERE LOWER(username) = $1 AND is_active = TRUE
	`, strings.ToLower(username)).Scan(&userID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	user.ID = userID.String()
	return &user, nil
}

// FindUserByID returns (nil, nil) for unknown, malformed or inactive ids.
func (s *UserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	var user models.User
	err = s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, created_at, is_active
		FROM users
		WHERE id = $1 AND is_active = TRUE
	`, parsedID).Scan(&user.Username, &user.PasswordHash, &user.CreatedAt, &user.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	user.ID = parsedID.String()
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
