package books

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidBook indicates the submitted book fields are unusable.
var ErrInvalidBook = errors.New("books: name required and content limited")

// Service handles book business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListBooks returns all books.
func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.repo.ListBooks(ctx)
}

// GetBook fetches a book by ID.
func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetBook(ctx, id)
}

// CreateBook validates and inserts a new book.
func (s *Service) CreateBook(ctx context.Context, name, content string) (Book, error) {
	name, content, err := normalize(name, content)
	if err != nil {
		return Book{}, err
	}
	return s.repo.CreateBook(ctx, name, content)
}

// UpdateBook validates and updates an existing book.
func (s *Service) UpdateBook(ctx context.Context, id int64, name, content string) (Book, error) {
	name, content, err := normalize(name, content)
	if err != nil {
		return Book{}, err
	}
	return s.repo.UpdateBook(ctx, id, name, content)
}

// DeleteBook removes a book.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

func normalize(name, content string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(content) > MaxContentLength {
		return "", "", ErrInvalidBook
	}
	return name, content, nil
}
