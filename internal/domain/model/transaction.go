package model

import (
	"time"

	"github.com/google/uuid"
)

type TxStatus string

const (
	TxStatusPending  TxStatus = "PENDING"
	TxStatusSuccess  TxStatus = "SUCCESS"
	TxStatusFailed   TxStatus = "FAILED"
	TxStatusReplaced TxStatus = "REPLACED"
)

// Transaction records one claim attempt. A swap may have several.
type Transaction struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SwapID    string    `db:"swap_id" json:"swap_id"`
	Network   Network   `db:"network" json:"network"`
	Address   string    `db:"address" json:"address"`
	Fee       string    `db:"fee" json:"fee"` // NUMERIC(78,0) as string, wei
	Hash      *string   `db:"hash" json:"hash,omitempty"`
	Status    TxStatus  `db:"status" json:"status"`
	Error     *string   `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TransactionPatch is a partial update. Nil fields are left untouched.
type TransactionPatch struct {
	Hash   *string
	Status *TxStatus
	Fee    *string
	Error  *string
}
