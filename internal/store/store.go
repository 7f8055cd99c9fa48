package store

import (
	"context"
	"errors"
	"time"

	"tipbot-go/internal/models"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TxTypeTip      = "tip"
	TxTypeDeposit  = "deposit"
	TxTypeWithdraw = "withdraw"
)

// Transaction statuses. A row is created as pending before the on-chain
// transfer runs and moves to exactly one terminal status afterwards.
// Pending rows with no terminal status require manual reconciliation.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Sentinel errors shared across all components, one per taxonomy member.
// Callers match with errors.Is; wrapped forms carry the local context.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyProcessed  = errors.New("transfer already processed")
	ErrKeyUnavailable    = errors.New("custody key unavailable")
	ErrDecryption        = errors.New("custody key decryption failed")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrDuplicateKey      = errors.New("duplicate idempotency key")
	ErrPersistence       = errors.New("persistence failed")
)

// CreateUserParams contains the parameters for bootstrapping a user.
type CreateUserParams struct {
	UserId     int64
	Username   string
	FirstName  string
	LastName   string
	Language   string
	ReferrerId int64
}

// PendingTransferParams describes the intent row claimed before the
// executor runs. The idempotency key is attached here, so the datastore
// uniqueness constraint guards the whole execute-and-persist sequence.
type PendingTransferParams struct {
	SenderId        int64
	RecipientId     int64
	SenderWallet    string
	RecipientWallet string
	Amount          decimal.Decimal
	Type            string
	IdempotencyKey  string
}

// Store defines the relational datastore contract consumed by the core.
type Store interface {
	// --- Users ---
	CreateUserIfNotExists(ctx context.Context, params CreateUserParams) (created bool, err error)
	GetUserById(ctx context.Context, userId int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListRegisteredUsers(ctx context.Context) ([]models.User, error)
	UpdateUserLanguage(ctx context.Context, userId int64, language string) error
	GetUserLanguage(ctx context.Context, userId int64) (string, error)
	UpdateUserWallet(ctx context.Context, userId int64, address, encryptedKey string) error
	GetUserWallet(ctx context.Context, userId int64) (string, error)
	GetEncryptedKey(ctx context.Context, userId int64) (string, error)
	IncrementReferralCount(ctx context.Context, userId int64) error
	GetUserReferrals(ctx context.Context, userId int64) (count int, referredIds []int64, err error)

	// --- Transactions ---
	CreatePendingTransfer(ctx context.Context, params PendingTransferParams) (int64, error)
	CompleteTransfer(ctx context.Context, id int64, txHash string) error
	FailTransfer(ctx context.Context, id int64) error
	TransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userId int64, limit, offset int) ([]models.Transaction, error)
	CountUserTransactions(ctx context.Context, userId int64) (int, error)
	ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error)

	// --- Lifecycle ---
	Close()
}
