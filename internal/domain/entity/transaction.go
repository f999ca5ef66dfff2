package entity

import (
	"math/big"
	"time"
)

// Transaction represents a single outgoing native-currency transfer as
// returned by the ledger collaborator. Value is in base units (wei) and is
// compared with exact integer arithmetic only; threshold decisions made on a
// float representation mis-classify boundary amounts.
type Transaction struct {
	Hash        string    `json:"hash"`
	From        Address   `json:"from"`
	To          Address   `json:"to"`
	Value       *big.Int  `json:"value"`
	BlockNumber string    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsSelfTransfer reports whether the transfer goes back to its own sender.
// Self-transfers are classified but never expand the frontier.
func (t *Transaction) IsSelfTransfer() bool {
	return t.From == t.To
}

// ValueString returns the transfer value in base units as a decimal string.
func (t *Transaction) ValueString() string {
	if t.Value == nil {
		return "0"
	}
	return t.Value.String()
}
