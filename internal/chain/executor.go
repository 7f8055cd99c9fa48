package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tipbot-go/internal/models"
	"tipbot-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Executor builds, signs, submits and confirms ERC-20 transfers against
// the fixed token contract. Every chain-side failure collapses to
// ErrTransferFailed; callers must not record success when it is returned.
type Executor struct {
	backend      Backend
	oracle       *Oracle
	token        common.Address
	gasLimit     uint64
	waitTimeout  time.Duration
	pollInterval time.Duration
}

func NewExecutor(backend Backend, oracle *Oracle, cfg models.ChainConfig) *Executor {
	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	waitTimeout := cfg.ReceiptTimeout
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}
	return &Executor{
		backend:      backend,
		oracle:       oracle,
		token:        common.HexToAddress(cfg.TokenAddress),
		gasLimit:     cfg.GasLimit,
		waitTimeout:  waitTimeout,
		pollInterval: pollInterval,
	}
}

// Execute runs the full transfer sequence: nonce, unit conversion, call
// build, scoped signing, submission, receipt wait. It blocks until the
// network confirms the transaction or the receipt wait times out.
func (e *Executor) Execute(ctx context.Context, senderAddress, recipientAddress string, amount decimal.Decimal, signer Signer) (string, error) {
	sender := common.HexToAddress(senderAddress)
	recipient := common.HexToAddress(recipientAddress)

	units, err := e.oracle.ToBaseUnits(amount)
	if err != nil {
		return "", err
	}

	nonce, err := e.backend.PendingNonceAt(ctx, sender)
	if err != nil {
		return "", fmt.Errorf("%w: nonce lookup: %v", store.ErrTransferFailed, err)
	}

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gas price lookup: %v", store.ErrTransferFailed, err)
	}

	chainId, err := e.backend.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: chain id lookup: %v", store.ErrTransferFailed, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &e.token,
		Value:    big.NewInt(0),
		Gas:      e.gasLimit,
		GasPrice: gasPrice,
		Data:     encodeTransfer(recipient, units),
	})

	signed, err := signer.Sign(ctx, tx, chainId)
	if err != nil {
		// Custody errors keep their taxonomy; anything else is a
		// transfer failure.
		if errors.Is(err, store.ErrKeyUnavailable) || errors.Is(err, store.ErrDecryption) {
			return "", err
		}
		return "", fmt.Errorf("%w: signing: %v", store.ErrTransferFailed, err)
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: submission: %v", store.ErrTransferFailed, err)
	}

	zap.L().Info("Transfer submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("sender", senderAddress),
		zap.String("recipient", recipientAddress),
		zap.String("amount", amount.String()))

	receipt, err := e.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return "", fmt.Errorf("%w: receipt wait: %v", store.ErrTransferFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: transfer reverted on-chain (tx %s)", store.ErrTransferFailed, receipt.TxHash.Hex())
	}

	return receipt.TxHash.Hex(), nil
}

func (e *Executor) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no receipt for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
