package books

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// RepositoryPort defines data access methods for books.
type RepositoryPort interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, name, content string) (Book, error)
	UpdateBook(ctx context.Context, id int64, name, content string) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookColumns = `id, name, content, created_at, updated_at`

// ListBooks returns all books.
func (r *Repository) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Book
	for rows.Next() {
		var book Book
		if err := rows.Scan(&book.ID, &book.Name, &book.Content, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, book)
	}
	return list, rows.Err()
}

// GetBook fetches a book by ID.
func (r *Repository) GetBook(ctx context.Context, id int64) (Book, error) {
	return scanBook(r.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
}

// CreateBook inserts a book. Name conflicts surface as shared.ErrDuplicate.
func (r *Repository) CreateBook(ctx context.Context, name, content string) (Book, error) {
	book, err := scanBook(r.pool.QueryRow(ctx, `
		INSERT INTO books (name, content, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING `+bookColumns, name, content))
	if err != nil {
		return Book{}, mapPGError(err)
	}
	return book, nil
}

// UpdateBook updates a book.
func (r *Repository) UpdateBook(ctx context.Context, id int64, name, content string) (Book, error) {
	book, err := scanBook(r.pool.QueryRow(ctx, `
		UPDATE books SET name = $2, content = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookColumns, id, name, content))
	if err != nil {
		return Book{}, mapPGError(err)
	}
	return book, nil
}

// DeleteBook removes a book by ID.
func (r *Repository) DeleteBook(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanBook(row pgx.Row) (Book, error) {
	var book Book
	err := row.Scan(&book.ID, &book.Name, &book.Content, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, shared.ErrNotFound
		}
		return Book{}, err
	}
	return book, nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
