package flow

import (
	"context"
	"strings"
	"time"

	"tipbot-go/internal/cache"
	"tipbot-go/internal/chain"
	"tipbot-go/internal/i18n"
	"tipbot-go/internal/idempotency"
	"tipbot-go/internal/models"
	"tipbot-go/internal/store"
	"tipbot-go/internal/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Oracle is the live balance source the engine consults. Satisfied by
// *chain.Oracle.
type Oracle interface {
	Balance(ctx context.Context, address string) decimal.Decimal
}

// Executor submits transfers on-chain. Satisfied by *chain.Executor.
type Executor interface {
	Execute(ctx context.Context, senderAddress, recipientAddress string, amount decimal.Decimal, signer chain.Signer) (string, error)
}

// translator is the pure lookup contract of the translation catalog,
// already bound to one user's language.
type translator func(key string) string

type transitionKey struct {
	flow  Flow
	state State
	kind  EventKind
}

type handlerFunc func(ctx context.Context, t translator, ev Event, sess session) Reply
type commandFunc func(ctx context.Context, t translator, ev Event, args []string) Reply

// Engine drives the three conversational flows. Every collaborator is
// injected; the engine owns only the per-user session table and the
// transition mapping.
type Engine struct {
	store        store.Store
	custody      *wallet.Custody
	oracle       Oracle
	executor     Executor
	cache        cache.BalanceCache
	ledger       *idempotency.Ledger
	catalog      *i18n.Catalog
	cfg          models.BotConfig
	cacheTtl     time.Duration
	tokenAddress string

	sessions *sessions
	handlers map[transitionKey]handlerFunc
	commands map[string]commandFunc
}

// EngineConfig bundles the engine's collaborators.
type EngineConfig struct {
	Store        store.Store
	Custody      *wallet.Custody
	Oracle       Oracle
	Executor     Executor
	Cache        cache.BalanceCache
	Ledger       *idempotency.Ledger
	Catalog      *i18n.Catalog
	Bot          models.BotConfig
	CacheTtl     time.Duration
	TokenAddress string
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:        cfg.Store,
		custody:      cfg.Custody,
		oracle:       cfg.Oracle,
		executor:     cfg.Executor,
		cache:        cfg.Cache,
		ledger:       cfg.Ledger,
		catalog:      cfg.Catalog,
		cfg:          cfg.Bot,
		cacheTtl:     cfg.CacheTtl,
		tokenAddress: cfg.TokenAddress,
		sessions:     newSessions(),
	}

	// The transition mapping is exhaustive: any (flow, state, kind)
	// combination not listed here resolves to an invalid-input reply.
	e.handlers = map[transitionKey]handlerFunc{
		{FlowRegistration, StateAwaitingConfirmation, EventAction}: e.handleRegistrationDecision,
		{FlowTip, StateAwaitingAmount, EventText}:                  e.handleTipAmount,
		{FlowTip, StateAwaitingConfirmation, EventAction}:          e.handleTipDecision,
		{FlowWithdrawal, StateAwaitingAddress, EventText}:          e.handleWithdrawAddress,
		{FlowWithdrawal, StateAwaitingAmount, EventText}:           e.handleWithdrawAmount,
		{FlowWithdrawal, StateAwaitingConfirmation, EventAction}:   e.handleWithdrawDecision,
	}

	e.commands = map[string]commandFunc{
		"start":        e.commandStart,
		"help":         e.commandHelp,
		"register":     e.commandRegister,
		"tip":          e.commandTip,
		"balance":      e.commandBalance,
		"wallet":       e.commandWallet,
		"transactions": e.commandTransactions,
		"referral":     e.commandReferral,
	}

	return e
}

// Handle processes one inbound event and returns the reply for it. The
// transition function is total: events that match no expected state or
// trigger produce an invalid-input reply, never a crash.
func (e *Engine) Handle(ctx context.Context, ev Event) Reply {
	t := e.translatorFor(ctx, ev.UserId)

	if ev.Kind == EventText && strings.HasPrefix(strings.TrimSpace(ev.Payload), "/") {
		// Commands preempt any in-flight flow; clearing here has no
		// side effects because nothing irreversible happens before a
		// confirmation is accepted.
		e.sessions.clear(ev.UserId)
		return e.dispatchCommand(ctx, t, ev)
	}

	sess := e.sessions.get(ev.UserId)
	if sess.flow != FlowNone {
		handler, ok := e.handlers[transitionKey{sess.flow, sess.state, ev.Kind}]
		if !ok {
			zap.L().Debug("No transition for event",
				zap.Int64("user_id", ev.UserId),
				zap.String("flow", sess.flow.String()),
				zap.String("state", sess.state.String()))
			return Reply{Text: t("invalid_input")}
		}
		return handler(ctx, t, ev, sess)
	}

	if ev.Kind == EventAction {
		return e.dispatchIdleAction(ctx, t, ev)
	}

	return Reply{Text: t("invalid_input")}
}

func (e *Engine) dispatchCommand(ctx context.Context, t translator, ev Event) Reply {
	fields := strings.Fields(ev.Payload)
	if len(fields) == 0 {
		return Reply{Text: t("invalid_input")}
	}

	name := strings.TrimPrefix(strings.ToLower(fields[0]), "/")
	// Group chats address commands as /tip@botname.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	command, ok := e.commands[name]
	if !ok {
		return Reply{Text: t("invalid_input")}
	}
	return command(ctx, t, ev, fields[1:])
}

// dispatchIdleAction routes stateless action presses: the wallet menu and
// language selection. Flow-bound actions are handled by the transition
// table instead.
func (e *Engine) dispatchIdleAction(ctx context.Context, t translator, ev Event) Reply {
	switch {
	case ev.Payload == "wallet_deposit":
		return e.actionWalletDeposit(ctx, t, ev)
	case ev.Payload == "wallet_withdraw":
		return e.actionWalletWithdraw(ctx, t, ev)
	case strings.HasPrefix(ev.Payload, "language_"):
		return e.actionSelectLanguage(ctx, ev, strings.TrimPrefix(ev.Payload, "language_"))
	default:
		return Reply{Text: t("invalid_input")}
	}
}

func (e *Engine) translatorFor(ctx context.Context, userId int64) translator {
	lang, err := e.store.GetUserLanguage(ctx, userId)
	if err != nil || lang == "" {
		lang = e.cfg.DefaultLanguage
	}
	return func(key string) string {
		return e.catalog.Lookup(lang, key)
	}
}

// failAndClear logs the underlying error, resets the session, and
// reports a flow-appropriate generic failure. No partial state survives.
func (e *Engine) failAndClear(userId int64, t translator, key string, err error) Reply {
	zap.L().Error("Flow aborted", zap.Int64("user_id", userId), zap.Error(err))
	e.sessions.clear(userId)
	return Reply{Text: t(key)}
}

func confirmActions(t translator, confirmData, cancelData string) []Action {
	return []Action{
		{Label: t("confirm"), Data: confirmData},
		{Label: t("cancel"), Data: cancelData},
	}
}
