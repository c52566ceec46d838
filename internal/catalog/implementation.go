package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const dialect = "postgres"

const bookColumns = `id, title, author, category, description, total_copies, available_copies, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db *sqlx.DB
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB) Service {
	return &service{db: db}
}

func (s *service) AddBook(ctx context.Context, input NewBook) (*Book, error) {
	book := &Book{
		ID:              uuid.New(),
		Title:           input.Title,
		Author:          input.Author,
		Category:        input.Category,
		Description:     input.Description,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
	}

	err := s.db.GetContext(ctx, book, `
		INSERT INTO books (id, title, author, category, description, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+bookColumns,
		book.ID, book.Title, book.Author, book.Category, book.Description,
		book.TotalCopies, book.AvailableCopies)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	err := s.db.GetContext(ctx, book, `
		SELECT `+bookColumns+`
		FROM books
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *service) Search(ctx context.Context, query string) ([]Book, error) {
	sqlQuery, args, err := buildSearch(query)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	var books []Book
	if err := s.db.SelectContext(ctx, &books, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*Book, error) {
	sqlQuery, args, err := buildBookUpdate(id, update, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetBook(ctx, id)
}

func (s *service) AdjustTotalCopies(ctx context.Context, id uuid.UUID, delta int) (*Book, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET total_copies = total_copies + $2,
		    available_copies = available_copies + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND total_copies + $2 >= 0
		  AND available_copies + $2 >= 0
	`, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust total copies: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("adjust total copies: %w", err)
	}
	if affected == 0 {
		// Either the book does not exist or the delta would retire copies
		// that are currently on loan.
		if _, err := s.GetBook(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidAdjustment
	}

	return s.GetBook(ctx, id)
}

func (s *service) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return false, err
	}
	return book.AvailableCopies > 0, nil
}

// buildBookUpdate compiles a typed partial update into one parameterized
// UPDATE statement. Field values never reach the SQL text.
func buildBookUpdate(id uuid.UUID, update BookUpdate, now time.Time) (string, []any, error) {
	if update.empty() {
		return "", nil, ErrEmptyUpdate
	}

	record := goqu.Record{"updated_at": now}
	if update.Title != nil {
		record["title"] = *update.Title
	}
	if update.Author != nil {
		record["author"] = *update.Author
	}
	if update.Category != nil {
		record["category"] = *update.Category
	}
	if update.Description != nil {
		record["description"] = *update.Description
	}

	return goqu.Dialect(dialect).
		Update("books").
		Set(record).
		Where(goqu.C("id").Eq(id.String())).
		Prepared(true).
		ToSQL()
}

// buildSearch matches title, author, or category case-insensitively.
func buildSearch(query string) (string, []any, error) {
	pattern := "%" + query + "%"
	return goqu.Dialect(dialect).
		From("books").
		Select("id", "title", "author", "category", "description",
			"total_copies", "available_copies", "created_at", "updated_at").
		Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("category").ILike(pattern),
		)).
		Order(goqu.C("title").Asc()).
		Limit(50).
		Prepared(true).
		ToSQL()
}
