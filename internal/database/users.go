package database

import (
	"context"
	"errors"
	"skrytka-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUsernameTaken = errors.New("a user with this username already exists")
	ErrEmailTaken    = errors.New("a user with this email already exists")
	ErrUserNotFound  = errors.New("user not found")
)

const userColumns = `id, username, email, password_hash, is_active, is_admin, created_at`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// CreateUser wstawia nowego użytkownika. Kolizje unikalności rozpoznaje po
// nazwie constraintu, więc wyścig dwóch rejestracji kończy się sentinelem,
// a nie gołym błędem Postgresa.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	row := q.db.QueryRow(ctx, query, arg.Username, arg.Email, arg.PasswordHash, arg.IsAdmin)

	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return nil, ErrUsernameTaken
			case "users_email_key":
				return nil, ErrEmailTaken
			}
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return q.scanUser(q.db.QueryRow(ctx, query, username))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return q.scanUser(q.db.QueryRow(ctx, query, email))
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return q.scanUser(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (q *Queries) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsActive,
			&user.IsAdmin,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

func (q *Queries) ListAdmins(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_admin = TRUE ORDER BY id`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsActive,
			&user.IsAdmin,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

func (q *Queries) SetUserAdmin(ctx context.Context, userID int64, isAdmin bool) (bool, error) {
	query := `UPDATE users SET is_admin = $1 WHERE id = $2`
	res, err := q.db.Exec(ctx, query, isAdmin, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetUserActive(ctx context.Context, userID int64, isActive bool) (bool, error) {
	query := `UPDATE users SET is_active = $1 WHERE id = $2`
	res, err := q.db.Exec(ctx, query, isActive, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) UpdateUserPassword(ctx context.Context, userID int64, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	_, err := q.db.Exec(ctx, query, newPasswordHash, userID)
	return err
}

// DeleteUser usuwa użytkownika. Rekordy jego plików znikają kaskadowo,
// pliki na dysku musi posprzątać warstwa wyżej (ListStoredNamesByOwner
// przed usunięciem, w tej samej transakcji).
func (q *Queries) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`
	res, err := q.db.Exec(ctx, query, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
