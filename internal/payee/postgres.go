package payee

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads payees from PostgreSQL.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory builds a Postgres-backed payee directory.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const payeeColumns = `payee_id, payee_name, payee_code, payee_category, status`

// Get fetches a payee by identifier.
func (d *PostgresDirectory) Get(ctx context.Context, id string) (Payee, error) {
	row := d.db.QueryRow(ctx, `SELECT `+payeeColumns+` FROM bill_payee WHERE payee_id = $1`, id)
	var p Payee
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Category, &p.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payee{}, ErrNotFound
		}
		return Payee{}, fmt.Errorf("scan payee: %w", err)
	}
	return p, nil
}

// ListActive returns all active payees ordered by name.
func (d *PostgresDirectory) ListActive(ctx context.Context) ([]Payee, error) {
	return d.list(ctx, `SELECT `+payeeColumns+` FROM bill_payee
        WHERE status = $1 ORDER BY payee_name ASC`, StatusActive)
}

// ListByCategory returns active payees in one category ordered by name.
func (d *PostgresDirectory) ListByCategory(ctx context.Context, category string) ([]Payee, error) {
	return d.list(ctx, `SELECT `+payeeColumns+` FROM bill_payee
        WHERE payee_category = $1 AND status = $2 ORDER BY payee_name ASC`, category, StatusActive)
}

func (d *PostgresDirectory) list(ctx context.Context, sql string, args ...any) ([]Payee, error) {
	rows, err := d.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	defer rows.Close()

	var payees []Payee
	for rows.Next() {
		var p Payee
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Category, &p.Status); err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		payees = append(payees, p)
	}
	return payees, rows.Err()
}
