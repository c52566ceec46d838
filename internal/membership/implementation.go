package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/time/rate"
)

const memberColumns = `id, email, name, account_status, fine_balance, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *sqlx.DB) Service {
	return &service{
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute), 5),
	}
}

func (s *service) Register(ctx context.Context, email, name, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	member := &Member{
		ID:     uuid.New(),
		Email:  email,
		Name:   name,
		Status: StatusActive,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	err = tx.GetContext(ctx, member, `
		INSERT INTO members (id, email, name, account_status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+memberColumns,
		member.ID, member.Email, member.Name, member.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (member_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`, member.ID, passwordHash, salt)
	if err != nil {
		return nil, fmt.Errorf("insert credentials: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return member, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	member := &Member{}
	err := s.db.GetContext(ctx, member, `
		SELECT `+memberColumns+`
		FROM members
		WHERE email = $1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load member by email: %w", err)
	}

	cred := &Credential{}
	err = s.db.GetContext(ctx, cred, `
		SELECT member_id, password_hash, salt
		FROM credentials
		WHERE member_id = $1
	`, member.ID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	ok, err := verifyPassword(password, cred.Salt, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return member, nil
}

func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member := &Member{}
	err := s.db.GetContext(ctx, member, `
		SELECT `+memberColumns+`
		FROM members
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

func (s *service) Lock(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusLocked)
}

func (s *service) Unlock(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusActive)
}

func (s *service) setStatus(ctx context.Context, id uuid.UUID, status AccountStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET account_status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *service) PayFine(ctx context.Context, id uuid.UUID, amount int64) (*Member, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET fine_balance = fine_balance - $2, updated_at = NOW()
		WHERE id = $1 AND fine_balance >= $2
	`, id, amount)
	if err != nil {
		return nil, fmt.Errorf("pay fine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("pay fine: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetMember(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrExcessPayment
	}

	return s.GetMember(ctx, id)
}
