package repository

import (
	"database/sql"
	"fmt"

	"campuspark/internal/db"
)

type LedgerRepository struct {
	DB *sql.DB
}

func NewLedgerRepository(database *sql.DB) *LedgerRepository {
	return &LedgerRepository{DB: database}
}

func (r *LedgerRepository) SaveUser(u db.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, external_address, balance_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
		    external_address = EXCLUDED.external_address, balance_cents = EXCLUDED.balance_cents`
	_, err := r.DB.Exec(query, u.ID, u.Name, u.Email, u.Phone, u.ExternalAddress, u.BalanceCents, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.ID, err)
	}
	return nil
}

func (r *LedgerRepository) SaveTransaction(tx db.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, kind, amount_cents, status, external_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, external_ref = EXCLUDED.external_ref, updated_at = EXCLUDED.updated_at`
	_, err := r.DB.Exec(query, tx.ID, tx.UserID, tx.Kind, tx.AmountCents, tx.Status, tx.ExternalRef, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (r *LedgerRepository) ListUsers() ([]db.User, error) {
	rows, err := r.DB.Query(`SELECT id, name, email, phone, external_address, balance_cents, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.ExternalAddress, &u.BalanceCents, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

func (r *LedgerRepository) ListTransactions() ([]db.Transaction, error) {
	rows, err := r.DB.Query(`SELECT id, user_id, kind, amount_cents, status, external_ref, created_at, updated_at FROM transactions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []db.Transaction
	for rows.Next() {
		var tx db.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Kind, &tx.AmountCents, &tx.Status, &tx.ExternalRef, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}
	return txs, nil
}
