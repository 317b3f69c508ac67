package models

import "time"

type TransactionKind string

const (
	TransactionEarned TransactionKind = "earned"
	TransactionSpent  TransactionKind = "spent"
)

// EcoTransaction is an append-only ledger entry. Amount is signed: earned
// entries are positive, spent entries negative.
type EcoTransaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Amount       int64           `json:"amount"`
	Kind         TransactionKind `json:"transaction_type"`
	Description  string          `json:"description"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
