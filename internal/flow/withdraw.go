package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tipbot-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// actionWalletWithdraw starts the withdrawal flow from the wallet menu.
// The available balance is snapshotted once here and bounds the whole
// flow; deposits landing mid-flow do not raise the limit.
func (e *Engine) actionWalletWithdraw(ctx context.Context, t translator, ev Event) Reply {
	senderWallet, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if senderWallet == "" {
		return Reply{Text: t("no_wallet")}
	}

	balance := e.oracle.Balance(ctx, senderWallet)
	e.sessions.put(ev.UserId, session{
		flow:  FlowWithdrawal,
		state: StateAwaitingAddress,
		intent: intent{
			senderWallet:   senderWallet,
			balanceAtStart: balance,
		},
	})
	return Reply{Text: t("withdraw_address_prompt")}
}

// handleWithdrawAddress validates the destination. A malformed address
// keeps the session in place for another attempt.
func (e *Engine) handleWithdrawAddress(ctx context.Context, t translator, ev Event, sess session) Reply {
	address := strings.TrimSpace(ev.Payload)
	if !addressPattern.MatchString(address) {
		return Reply{Text: t("invalid_address_format")}
	}

	sess.intent.recipientWallet = address
	sess.intent.recipientName = address
	sess.state = StateAwaitingAmount
	e.sessions.put(ev.UserId, sess)
	return Reply{Text: fmt.Sprintf(t("withdraw_amount_prompt"), sess.intent.balanceAtStart.String())}
}

func (e *Engine) handleWithdrawAmount(ctx context.Context, t translator, ev Event, sess session) Reply {
	amount, err := decimal.NewFromString(strings.TrimSpace(ev.Payload))
	if err != nil {
		return Reply{Text: t("invalid_amount")}
	}
	if !amount.IsPositive() {
		return Reply{Text: t("amount_must_be_positive")}
	}
	if amount.GreaterThan(sess.intent.balanceAtStart) {
		return Reply{Text: fmt.Sprintf(t("insufficient_balance_withdraw"), sess.intent.balanceAtStart.String())}
	}

	sess.intent.amount = amount
	sess.intent.idempotencyKey = e.ledger.NewToken()
	sess.state = StateAwaitingConfirmation
	e.sessions.put(ev.UserId, sess)
	return Reply{
		Text:    fmt.Sprintf(t("withdraw_confirmation"), amount.String(), sess.intent.recipientWallet),
		Actions: confirmActions(t, "confirm_withdraw", "cancel_withdraw"),
	}
}

func (e *Engine) handleWithdrawDecision(ctx context.Context, t translator, ev Event, sess session) Reply {
	switch ev.Payload {
	case "confirm_withdraw":
		return e.executeWithdraw(ctx, t, ev.UserId, sess.intent)
	case "cancel_withdraw":
		e.sessions.clear(ev.UserId)
		return Reply{Text: t("withdraw_cancelled")}
	default:
		return Reply{Text: t("invalid_input")}
	}
}

// executeWithdraw follows the same claim-then-execute shape as tips. The
// destination is external, so there is no recipient row and no recipient
// cache entry to invalidate.
func (e *Engine) executeWithdraw(ctx context.Context, t translator, userId int64, in intent) Reply {
	processed, err := e.ledger.IsProcessed(ctx, in.idempotencyKey)
	if err != nil {
		return e.failAndClear(userId, t, "withdraw_error", err)
	}
	if processed {
		e.sessions.clear(userId)
		return Reply{Text: t("transaction_already_processed")}
	}

	rowId, err := e.store.CreatePendingTransfer(ctx, store.PendingTransferParams{
		SenderId:        userId,
		SenderWallet:    in.senderWallet,
		RecipientWallet: in.recipientWallet,
		Amount:          in.amount,
		Type:            store.TxTypeWithdraw,
		IdempotencyKey:  in.idempotencyKey,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		e.sessions.clear(userId)
		return Reply{Text: t("transaction_already_processed")}
	}
	if err != nil {
		return e.failAndClear(userId, t, "withdraw_error", err)
	}

	txHash, err := e.executor.Execute(ctx, in.senderWallet, in.recipientWallet, in.amount, e.custody.SignerFor(userId))
	if err != nil {
		if failErr := e.store.FailTransfer(ctx, rowId); failErr != nil {
			zap.L().Error("Unable to mark transfer failed",
				zap.Int64("transaction_id", rowId), zap.Error(failErr))
		}
		return e.failAndClear(userId, t, "withdraw_error", err)
	}

	if err := e.store.CompleteTransfer(ctx, rowId, txHash); err != nil {
		zap.L().Error("Unable to mark transfer completed",
			zap.Int64("transaction_id", rowId),
			zap.String("tx_hash", txHash), zap.Error(err))
	}

	e.cache.Invalidate(ctx, userId)

	zap.L().Info("Withdrawal sent",
		zap.Int64("user_id", userId),
		zap.String("recipient", in.recipientWallet),
		zap.String("amount", in.amount.String()),
		zap.String("tx_hash", txHash))

	e.sessions.clear(userId)
	return Reply{Text: fmt.Sprintf(t("withdraw_success"), in.amount.String(), in.recipientWallet, txHash)}
}
