package database

import (
	"context"
	"errors"
	"skrytka-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrStoredNameTaken   = errors.New("a file with this stored name already exists")
	ErrRecipientNotFound = errors.New("recipient user not found")
	ErrFileNotFound      = errors.New("file not found")
)

const fileColumns = `id, filename, stored_filename, owner_id, recipient_id, uploaded_at`

type CreateFileParams struct {
	Filename       string
	StoredFilename string
	OwnerID        int64
	RecipientID    *int64
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (*models.File, error) {
	query := `
		INSERT INTO files (filename, stored_filename, owner_id, recipient_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + fileColumns

	row := q.db.QueryRow(ctx, query, arg.Filename, arg.StoredFilename, arg.OwnerID, arg.RecipientID)

	file, err := scanFile(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrStoredNameTaken
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == "files_recipient_id_fkey" {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	return file, nil
}

func (q *Queries) GetFileByStoredName(ctx context.Context, storedFilename string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE stored_filename = $1`
	file, err := scanFile(q.db.QueryRow(ctx, query, storedFilename))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

func (q *Queries) GetFileByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	file, err := scanFile(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Filename,
		&file.StoredFilename,
		&file.OwnerID,
		&file.RecipientID,
		&file.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (q *Queries) ListFilesByOwner(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return q.listFiles(ctx, query, ownerID, limit, offset)
}

func (q *Queries) ListFilesByRecipient(ctx context.Context, recipientID int64, limit int, offset int) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE recipient_id = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return q.listFiles(ctx, query, recipientID, limit, offset)
}

func (q *Queries) ListAllFiles(ctx context.Context, limit int, offset int) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files ORDER BY id LIMIT $1 OFFSET $2`
	return q.listFiles(ctx, query, limit, offset)
}

func (q *Queries) listFiles(ctx context.Context, query string, args ...interface{}) ([]models.File, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var file models.File
		err := rows.Scan(
			&file.ID,
			&file.Filename,
			&file.StoredFilename,
			&file.OwnerID,
			&file.RecipientID,
			&file.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if files == nil {
		return []models.File{}, nil
	}

	return files, nil
}

// DeleteFileOwned usuwa plik tylko wtedy, gdy należy do wskazanego
// właściciela. Zwraca usunięty rekord, żeby warstwa wyżej znała
// stored_filename do sprzątnięcia z dysku.
func (q *Queries) DeleteFileOwned(ctx context.Context, fileID int64, ownerID int64) (*models.File, error) {
	query := `
		DELETE FROM files
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns

	file, err := scanFile(q.db.QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

// DeleteFile usuwa plik bez sprawdzania właściciela, dla operacji
// administracyjnych.
func (q *Queries) DeleteFile(ctx context.Context, fileID int64) (*models.File, error) {
	query := `DELETE FROM files WHERE id = $1 RETURNING ` + fileColumns

	file, err := scanFile(q.db.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

// ListStoredNamesByOwner zbiera nazwy dyskowe wszystkich plików
// użytkownika. Wywoływane w transakcji przed DeleteUser.
func (q *Queries) ListStoredNamesByOwner(ctx context.Context, ownerID int64) ([]string, error) {
	query := `SELECT stored_filename FROM files WHERE owner_id = $1`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
