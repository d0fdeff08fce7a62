package db

import (
	"context"
	"database/sql"
	"fmt"
)

// RecordRepository is the read-only client for the external reference
// store: issued certificates plus the admin/authenticator credential
// tables. This service never writes to any of them.
type RecordRepository interface {
	FindExact(ctx context.Context, name, score, identifier string) (bool, error)
	FindByIdentifier(ctx context.Context, identifier string) (bool, error)
	VerifyLogin(ctx context.Context, role, username, password string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) RecordRepository {
	return &repository{db: db}
}

func (r *repository) FindExact(ctx context.Context, name, score, identifier string) (bool, error) {
	query := `SELECT 1 FROM certificates WHERE name = ? AND marks = ? AND certificate_id = ? LIMIT 1`
	return r.exists(ctx, query, name, score, identifier)
}

func (r *repository) FindByIdentifier(ctx context.Context, identifier string) (bool, error) {
	query := `SELECT 1 FROM certificates WHERE certificate_id = ? LIMIT 1`
	return r.exists(ctx, query, identifier)
}

func (r *repository) VerifyLogin(ctx context.Context, role, username, password string) (bool, error) {
	var table string
	switch role {
	case "admin":
		table = "admins"
	case "authenticator":
		table = "authenticators"
	default:
		return false, fmt.Errorf("unknown login role: %s", role)
	}

	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE username = ? AND password = ? LIMIT 1`, table)
	return r.exists(ctx, query, username, password)
}

func (r *repository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
