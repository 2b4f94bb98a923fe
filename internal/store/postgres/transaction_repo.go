package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/google/uuid"
)

type TransactionRepo struct {
	db *DB
}

var _ store.TransactionRepository = (*TransactionRepo)(nil)

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Create inserts a claim transaction, assigning an id when unset.
func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TxStatusPending
	}
	if t.Fee == "" {
		t.Fee = "0"
	}

	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (id, swap_id, network, address, fee, hash, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, t.ID, t.SwapID, t.Network, t.Address, t.Fee, t.Hash, t.Status, t.Error,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) Update(ctx context.Context, id uuid.UUID, patch model.TransactionPatch) error {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Hash != nil {
		add("hash", *patch.Hash)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Fee != nil {
		add("fee", *patch.Fee)
	}
	if patch.Error != nil {
		add("error", *patch.Error)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`UPDATE transactions SET %s, updated_at = now() WHERE id = $%d`, strings.Join(set, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update transaction %s: not found", id)
	}
	return nil
}

func (r *TransactionRepo) FindBySwapID(ctx context.Context, swapID string) ([]model.Transaction, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, swap_id, network, address, fee, hash, status, error, created_at, updated_at
		FROM transactions
		WHERE swap_id = $1
		ORDER BY created_at ASC
	`, swapID)
	if err != nil {
		return nil, fmt.Errorf("find transactions for %s: %w", swapID, err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t           model.Transaction
			hash, cause sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.SwapID, &t.Network, &t.Address, &t.Fee, &hash, &t.Status, &cause, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Hash = nullString(hash)
		t.Error = nullString(cause)
		out = append(out, t)
	}
	return out, rows.Err()
}
