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

// commandStart bootstraps the user row and credits a referral when the
// deep-link payload names one. Referrals count only on first contact, so
// restarting the bot cannot farm the bonus.
func (e *Engine) commandStart(ctx context.Context, t translator, ev Event, args []string) Reply {
	var referrerId int64
	if len(args) > 0 && strings.HasPrefix(args[0], "ref") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "ref"), 10, 64); err == nil && id != ev.UserId {
			referrerId = id
		}
	}

	created, err := e.store.CreateUserIfNotExists(ctx, store.CreateUserParams{
		UserId:     ev.UserId,
		Username:   ev.Username,
		FirstName:  ev.FirstName,
		LastName:   ev.LastName,
		Language:   e.cfg.DefaultLanguage,
		ReferrerId: referrerId,
	})
	if err != nil {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}

	if created && referrerId != 0 {
		if err := e.store.IncrementReferralCount(ctx, referrerId); err != nil {
			// Most likely the referrer never started the bot; nothing
			// to credit.
			zap.L().Warn("Unable to credit referral",
				zap.Int64("referrer_id", referrerId),
				zap.Int64("user_id", ev.UserId),
				zap.Error(err))
		} else {
			zap.L().Info("Referral credited",
				zap.Int64("referrer_id", referrerId),
				zap.Int64("user_id", ev.UserId))
		}
	}

	name := ev.FirstName
	if name == "" {
		name = ev.Username
	}
	return Reply{
		Text:    fmt.Sprintf(t("welcome_message"), name),
		Actions: e.languageActions(),
	}
}

func (e *Engine) commandHelp(_ context.Context, t translator, _ Event, _ []string) Reply {
	return Reply{Text: t("help_message")}
}

// commandBalance serves the display balance through the cache. A miss
// reads the chain and re-primes the entry for the configured TTL.
func (e *Engine) commandBalance(ctx context.Context, t translator, ev Event, _ []string) Reply {
	address, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if address == "" {
		return Reply{Text: t("no_wallet")}
	}

	balance, hit := e.cache.Get(ctx, ev.UserId)
	if !hit {
		balance = e.oracle.Balance(ctx, address)
		e.cache.Put(ctx, ev.UserId, balance, e.cacheTtl)
	}
	return Reply{Text: fmt.Sprintf(t("balance_info"), balance.String())}
}

func (e *Engine) commandWallet(ctx context.Context, t translator, ev Event, _ []string) Reply {
	address, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if address == "" {
		return Reply{Text: t("no_wallet")}
	}

	balance, hit := e.cache.Get(ctx, ev.UserId)
	if !hit {
		balance = e.oracle.Balance(ctx, address)
		e.cache.Put(ctx, ev.UserId, balance, e.cacheTtl)
	}

	return Reply{
		Text: fmt.Sprintf(t("wallet_info"), address, balance.String()),
		Actions: []Action{
			{Label: t("deposit"), Data: "wallet_deposit"},
			{Label: t("withdraw"), Data: "wallet_withdraw"},
		},
	}
}

func (e *Engine) commandTransactions(ctx context.Context, t translator, ev Event, args []string) Reply {
	page := 0
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
			page = parsed - 1
		}
	}

	limit := e.cfg.HistoryPageSize
	transactions, err := e.store.GetUserTransactions(ctx, ev.UserId, limit, page*limit)
	if err != nil {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if len(transactions) == 0 {
		return Reply{Text: t("no_transactions")}
	}

	lines := []string{t("transaction_history")}
	for _, tx := range transactions {
		lines = append(lines, e.formatTransaction(ctx, t, ev.UserId, tx))
	}
	return Reply{Text: strings.Join(lines, "\n")}
}

func (e *Engine) commandReferral(ctx context.Context, t translator, ev Event, _ []string) Reply {
	count, _, err := e.store.GetUserReferrals(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	bonus := e.cfg.ReferralBonus.Mul(decimalFromInt(count))
	return Reply{Text: fmt.Sprintf(t("referral_info"), count, bonus.String())}
}

func (e *Engine) actionWalletDeposit(ctx context.Context, t translator, ev Event) Reply {
	address, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if address == "" {
		return Reply{Text: t("no_wallet")}
	}
	return Reply{Text: fmt.Sprintf(t("deposit_instructions"), address, e.tokenAddress)}
}

func (e *Engine) actionSelectLanguage(ctx context.Context, ev Event, lang string) Reply {
	supported := false
	for _, code := range e.catalog.Languages() {
		if code == lang {
			supported = true
			break
		}
	}
	// Reply in the chosen language on success, the old one otherwise.
	if !supported {
		t := e.translatorFor(ctx, ev.UserId)
		return Reply{Text: t("unknown_language")}
	}

	if err := e.store.UpdateUserLanguage(ctx, ev.UserId, lang); err != nil {
		t := e.translatorFor(ctx, ev.UserId)
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	return Reply{Text: fmt.Sprintf(e.catalog.Lookup(lang, "language_selected"), lang)}
}

func (e *Engine) languageActions() []Action {
	codes := e.catalog.Languages()
	actions := make([]Action, 0, len(codes))
	for _, code := range codes {
		actions = append(actions, Action{Label: code, Data: "language_" + code})
	}
	return actions
}

// formatTransaction renders one history line from the viewer's side of
// the transfer.
func (e *Engine) formatTransaction(ctx context.Context, t translator, viewerId int64, tx models.Transaction) string {
	when := tx.CreatedAt.Format("2006-01-02 15:04")
	switch {
	case tx.Type == store.TxTypeWithdraw:
		return fmt.Sprintf(t("withdraw_tx"), tx.Amount.String(), tx.RecipientWallet, when)
	case tx.Type == store.TxTypeDeposit:
		return fmt.Sprintf(t("deposit_tx"), tx.Amount.String(), when)
	case tx.SenderId == viewerId:
		return fmt.Sprintf(t("outgoing_tip"), tx.Amount.String(), e.counterpartyName(ctx, tx.RecipientId, tx.RecipientWallet), when)
	default:
		return fmt.Sprintf(t("incoming_tip"), tx.Amount.String(), e.counterpartyName(ctx, tx.SenderId, tx.SenderWallet), when)
	}
}

func (e *Engine) counterpartyName(ctx context.Context, userId int64, fallback string) string {
	user, err := e.store.GetUserById(ctx, userId)
	if err != nil {
		return fallback
	}
	return user.DisplayName()
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
