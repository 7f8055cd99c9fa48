package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tipbot-go/internal/models"
	"tipbot-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// commandTip starts the tip flow. The recipient is mandatory; the amount
// may be supplied inline or in a follow-up message.
func (e *Engine) commandTip(ctx context.Context, t translator, ev Event, args []string) Reply {
	if err := e.ensureUser(ctx, ev); err != nil {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if len(args) == 0 {
		return Reply{Text: t("tip_usage")}
	}

	senderWallet, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if senderWallet == "" {
		return Reply{Text: t("no_wallet")}
	}

	recipient, reply, ok := e.resolveRecipient(ctx, t, ev.UserId, args[0])
	if !ok {
		return reply
	}

	in := intent{
		senderWallet:    senderWallet,
		recipientId:     recipient.Id,
		recipientName:   recipient.DisplayName(),
		recipientWallet: recipient.WalletAddress,
	}

	if len(args) < 2 {
		e.sessions.put(ev.UserId, session{flow: FlowTip, state: StateAwaitingAmount, intent: in})
		return Reply{Text: t("tip_amount_prompt")}
	}

	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return Reply{Text: t("invalid_amount")}
	}
	return e.stageTip(ctx, t, ev.UserId, in, amount)
}

// handleTipAmount consumes the follow-up amount message. Invalid input
// keeps the session where it is so the user can retry.
func (e *Engine) handleTipAmount(ctx context.Context, t translator, ev Event, sess session) Reply {
	amount, err := decimal.NewFromString(strings.TrimSpace(ev.Payload))
	if err != nil {
		return Reply{Text: t("invalid_amount")}
	}
	return e.stageTip(ctx, t, ev.UserId, sess.intent, amount)
}

// stageTip runs the full validation chain and, only once everything
// passed, mints the idempotency token and asks for confirmation.
func (e *Engine) stageTip(ctx context.Context, t translator, userId int64, in intent, amount decimal.Decimal) Reply {
	if amount.LessThan(e.cfg.MinTipAmount) {
		return Reply{Text: fmt.Sprintf(t("tip_amount_too_low"), e.cfg.MinTipAmount.String())}
	}
	if amount.GreaterThan(e.cfg.MaxTipAmount) {
		return Reply{Text: fmt.Sprintf(t("tip_amount_too_high"), e.cfg.MaxTipAmount.String())}
	}
	if in.recipientWallet == "" {
		e.sessions.clear(userId)
		return Reply{Text: t("recipient_no_wallet")}
	}

	// Spend checks always read the chain, never the display cache.
	balance := e.oracle.Balance(ctx, in.senderWallet)
	if amount.GreaterThan(balance) {
		e.sessions.clear(userId)
		return Reply{Text: fmt.Sprintf(t("insufficient_balance"), balance.String())}
	}

	in.amount = amount
	in.idempotencyKey = e.ledger.NewToken()
	e.sessions.put(userId, session{flow: FlowTip, state: StateAwaitingConfirmation, intent: in})
	return Reply{
		Text:    fmt.Sprintf(t("confirm_tip"), amount.String(), in.recipientName),
		Actions: confirmActions(t, "confirm_tip", "cancel_tip"),
	}
}

func (e *Engine) handleTipDecision(ctx context.Context, t translator, ev Event, sess session) Reply {
	switch ev.Payload {
	case "confirm_tip":
		return e.executeTip(ctx, t, ev.UserId, sess.intent)
	case "cancel_tip":
		e.sessions.clear(ev.UserId)
		return Reply{Text: t("tip_cancelled")}
	default:
		return Reply{Text: t("invalid_input")}
	}
}

// executeTip is the single irreversible step of the flow. The pending row
// is claimed before the chain call, so a replayed confirmation can never
// reach the executor twice: the second claim fails on the idempotency
// key's uniqueness constraint.
func (e *Engine) executeTip(ctx context.Context, t translator, userId int64, in intent) Reply {
	processed, err := e.ledger.IsProcessed(ctx, in.idempotencyKey)
	if err != nil {
		return e.failAndClear(userId, t, "tip_error", err)
	}
	if processed {
		e.sessions.clear(userId)
		return Reply{Text: t("transaction_already_processed")}
	}

	rowId, err := e.store.CreatePendingTransfer(ctx, store.PendingTransferParams{
		SenderId:        userId,
		RecipientId:     in.recipientId,
		SenderWallet:    in.senderWallet,
		RecipientWallet: in.recipientWallet,
		Amount:          in.amount,
		Type:            store.TxTypeTip,
		IdempotencyKey:  in.idempotencyKey,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		e.sessions.clear(userId)
		return Reply{Text: t("transaction_already_processed")}
	}
	if err != nil {
		return e.failAndClear(userId, t, "tip_error", err)
	}

	txHash, err := e.executor.Execute(ctx, in.senderWallet, in.recipientWallet, in.amount, e.custody.SignerFor(userId))
	if err != nil {
		if failErr := e.store.FailTransfer(ctx, rowId); failErr != nil {
			zap.L().Error("Unable to mark transfer failed",
				zap.Int64("transaction_id", rowId), zap.Error(failErr))
		}
		return e.failAndClear(userId, t, "tip_error", err)
	}

	if err := e.store.CompleteTransfer(ctx, rowId, txHash); err != nil {
		// The chain transfer went through; keep the success reply and
		// leave the pending row for the stale-transfer report.
		zap.L().Error("Unable to mark transfer completed",
			zap.Int64("transaction_id", rowId),
			zap.String("tx_hash", txHash), zap.Error(err))
	}

	e.cache.Invalidate(ctx, userId)
	e.cache.Invalidate(ctx, in.recipientId)

	zap.L().Info("Tip sent",
		zap.Int64("sender_id", userId),
		zap.Int64("recipient_id", in.recipientId),
		zap.String("amount", in.amount.String()),
		zap.String("tx_hash", txHash))

	e.sessions.clear(userId)
	return Reply{Text: fmt.Sprintf(t("tip_success"), in.amount.String(), in.recipientName, txHash)}
}

// resolveRecipient turns "@username" or a numeric id into a registered
// user, rejecting self-tips and tips to the service account.
func (e *Engine) resolveRecipient(ctx context.Context, t translator, senderId int64, ref string) (*models.User, Reply, bool) {
	var (
		recipient *models.User
		err       error
	)
	if strings.HasPrefix(ref, "@") {
		recipient, err = e.store.GetUserByUsername(ctx, strings.TrimPrefix(ref, "@"))
	} else {
		id, parseErr := strconv.ParseInt(ref, 10, 64)
		if parseErr != nil {
			return nil, Reply{Text: t("invalid_user_id")}, false
		}
		recipient, err = e.store.GetUserById(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, Reply{Text: t("user_not_found")}, false
	}
	if err != nil {
		return nil, e.failAndClear(senderId, t, "error_generic", err), false
	}

	if recipient.Id == senderId {
		return nil, Reply{Text: t("cannot_tip_yourself")}, false
	}
	if e.cfg.ServiceUserId != 0 && recipient.Id == e.cfg.ServiceUserId {
		return nil, Reply{Text: t("cannot_tip_bot")}, false
	}
	return recipient, Reply{}, true
}
