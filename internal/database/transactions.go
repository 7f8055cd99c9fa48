package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tipbot-go/internal/models"
	"tipbot-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// CreatePendingTransfer claims the idempotency key by inserting the row
// with status pending before any on-chain work happens. A unique-key
// violation means another confirmation already claimed the token.
func (s *Service) CreatePendingTransfer(ctx context.Context, params store.PendingTransferParams) (int64, error) {
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be positive, got %s", store.ErrValidation, params.Amount)
	}
	if params.Type == "" {
		return 0, fmt.Errorf("%w: transaction type is required", store.ErrValidation)
	}

	key := sql.NullString{String: params.IdempotencyKey, Valid: params.IdempotencyKey != ""}

	result, err := s.db.ExecContext(ctx, queryInsertPendingTransfer,
		params.SenderId, params.RecipientId, params.SenderWallet, params.RecipientWallet,
		params.Amount.String(), params.Type, key)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			zap.L().Warn("Duplicate idempotency key rejected by constraint",
				zap.String("idempotency_key", params.IdempotencyKey))
			return 0, fmt.Errorf("%w: %s", store.ErrDuplicateKey, params.IdempotencyKey)
		}
		return 0, fmt.Errorf("unable to insert pending transfer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unable to read inserted transfer id: %w", err)
	}

	zap.L().Info("Pending transfer recorded",
		zap.Int64("id", id),
		zap.Int64("sender_id", params.SenderId),
		zap.String("type", params.Type),
		zap.String("amount", params.Amount.String()))
	return id, nil
}

func (s *Service) CompleteTransfer(ctx context.Context, id int64, txHash string) error {
	result, err := s.db.ExecContext(ctx, queryCompleteTransfer, txHash, id)
	if err != nil {
		return fmt.Errorf("unable to complete transfer %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transfer %d", store.ErrNotFound, id)
	}
	zap.L().Info("Transfer completed", zap.Int64("id", id), zap.String("tx_hash", txHash))
	return nil
}

func (s *Service) FailTransfer(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, queryFailTransfer, id)
	if err != nil {
		return fmt.Errorf("unable to mark transfer %d failed: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transfer %d", store.ErrNotFound, id)
	}
	zap.L().Warn("Transfer marked failed", zap.Int64("id", id))
	return nil
}

func (s *Service) TransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty idempotency key", store.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx, queryGetTransactionByKey, key)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency key %s", store.ErrNotFound, key)
		}
		return nil, err
	}
	return tx, nil
}

func (s *Service) GetUserTransactions(ctx context.Context, userId int64, limit, offset int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserTransactions, userId, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return collectTransactions(rows)
}

func (s *Service) CountUserTransactions(ctx context.Context, userId int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountUserTransactions, userId, userId).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count transactions: %w", err)
	}
	return count, nil
}

// ListStalePending returns pending rows older than the given age. These
// are transfers whose outcome is unknown (crash between submit and
// persist); they are reported for manual reconciliation, never resolved
// automatically.
func (s *Service) ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(sqliteTimeLayout)
	rows, err := s.db.QueryContext(ctx, queryListStalePending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("unable to query stale pending transfers: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amountStr string
	var key sql.NullString
	err := row.Scan(&tx.Id, &tx.SenderId, &tx.RecipientId, &tx.SenderWallet, &tx.RecipientWallet,
		&amountStr, &tx.TxHash, &tx.Type, &tx.Status, &key, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", amountStr, err)
	}
	tx.IdempotencyKey = key.String
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
