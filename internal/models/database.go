package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a chat-platform user and their custodial wallet state.
type User struct {
	Id                  int64
	Username            string
	FirstName           string
	LastName            string
	Language            string
	WalletAddress       string // empty until the user registers a wallet
	EncryptedPrivateKey string // empty until the user registers a wallet
	ReferrerId          int64  // 0 when the user joined without a referral
	ReferralCount       int
	CreatedAt           time.Time
	LastActive          time.Time
}

// HasWallet reports whether the user completed wallet registration.
func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}

// DisplayName returns the best human-readable handle for the user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return ""
}

// Transaction represents one attempted or completed value transfer.
// Wallet addresses are snapshotted at execution time, never re-derived.
type Transaction struct {
	Id              int64
	SenderId        int64 // 0 for external deposits
	RecipientId     int64 // 0 for withdrawals to external addresses
	SenderWallet    string
	RecipientWallet string
	Amount          decimal.Decimal
	TxHash          string // empty until confirmed on-chain
	Type            string // tip, deposit, withdraw
	Status          string // pending, completed, failed
	IdempotencyKey  string // empty when not applicable, unique otherwise
	CreatedAt       time.Time
}
