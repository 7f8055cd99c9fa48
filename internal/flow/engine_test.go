package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"tipbot-go/internal/cache"
	"tipbot-go/internal/chain"
	"tipbot-go/internal/database"
	"tipbot-go/internal/i18n"
	"tipbot-go/internal/idempotency"
	"tipbot-go/internal/models"
	"tipbot-go/internal/store"
	"tipbot-go/internal/wallet"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const testCipherKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// fakeOracle serves scripted balances and counts reads.
type fakeOracle struct {
	balances map[string]decimal.Decimal
	calls    int
}

func (f *fakeOracle) Balance(_ context.Context, address string) decimal.Decimal {
	f.calls++
	return f.balances[address]
}

// fakeExecutor records every submission instead of touching a chain.
type fakeExecutor struct {
	calls  int
	err    error
	lastTo string
}

func (f *fakeExecutor) Execute(_ context.Context, _, recipientAddress string, _ decimal.Decimal, _ chain.Signer) (string, error) {
	f.calls++
	f.lastTo = recipientAddress
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("0xhash%d", f.calls), nil
}

type testEnv struct {
	engine   *Engine
	db       *database.Service
	custody  *wallet.Custody
	oracle   *fakeOracle
	executor *fakeExecutor
}

func setupEngine(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cipher, err := wallet.NewCipher(testCipherKey, nil)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	custody := wallet.NewCustody(cipher, db)

	oracle := &fakeOracle{balances: make(map[string]decimal.Decimal)}
	executor := &fakeExecutor{}

	engine := NewEngine(EngineConfig{
		Store:    db,
		Custody:  custody,
		Oracle:   oracle,
		Executor: executor,
		Cache:    cache.NewMemory(),
		Ledger:   idempotency.NewLedger(db),
		Catalog:  i18n.NewCatalog("en", nil),
		Bot: models.BotConfig{
			MinTipAmount:    decimal.NewFromInt(1),
			MaxTipAmount:    decimal.NewFromInt(1000),
			ReferralBonus:   decimal.NewFromInt(10),
			DefaultLanguage: "en",
			ServiceUserId:   555,
			HistoryPageSize: 10,
		},
		CacheTtl:     time.Minute,
		TokenAddress: "0x0000000000000000000000000000000000000fee",
	})

	env := &testEnv{engine: engine, db: db, custody: custody, oracle: oracle, executor: executor}
	return env, db.Close
}

func textEvent(userId int64, username, payload string) Event {
	return Event{UserId: userId, Username: username, FirstName: username, Kind: EventText, Payload: payload}
}

func actionEvent(userId int64, username, data string) Event {
	return Event{UserId: userId, Username: username, Kind: EventAction, Payload: data}
}

// registerUser creates the account row and a funded custodial wallet.
func registerUser(t *testing.T, env *testEnv, userId int64, username string, balance decimal.Decimal) string {
	t.Helper()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(userId, username, "/start"))

	address, keyHex, err := env.custody.CreateWallet()
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}
	if err := env.custody.StoreWallet(ctx, userId, address, keyHex); err != nil {
		t.Fatalf("StoreWallet failed: %v", err)
	}
	env.oracle.balances[address] = balance
	return address
}

func TestRegistrationFlow(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/register"))
	if len(reply.Actions) != 2 {
		t.Fatalf("Expected confirm/cancel actions, got %d", len(reply.Actions))
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_registration"))
	if !strings.Contains(reply.Text, "0x") {
		t.Errorf("Expected wallet address in reply, got %q", reply.Text)
	}

	address, err := env.db.GetUserWallet(ctx, 1001)
	if err != nil {
		t.Fatalf("GetUserWallet failed: %v", err)
	}
	if address == "" {
		t.Errorf("Expected a persisted wallet address")
	}

	// A second /register must not replace the wallet
	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "/register"))
	if !strings.Contains(reply.Text, "already have a wallet") {
		t.Errorf("Expected already-registered reply, got %q", reply.Text)
	}
}

func TestRegistrationCancelled(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))
	env.engine.Handle(ctx, textEvent(1001, "alice", "/register"))
	env.engine.Handle(ctx, actionEvent(1001, "alice", "cancel_registration"))

	address, err := env.db.GetUserWallet(ctx, 1001)
	if err != nil {
		t.Fatalf("GetUserWallet failed: %v", err)
	}
	if address != "" {
		t.Errorf("Expected no wallet after cancelled registration")
	}
}

func TestTipHappyPath(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	bobWallet := registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	if len(reply.Actions) != 2 {
		t.Fatalf("Expected confirmation actions, got reply %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))
	if !strings.Contains(reply.Text, "0xhash1") {
		t.Errorf("Expected success with tx hash, got %q", reply.Text)
	}
	if env.executor.calls != 1 {
		t.Errorf("Expected 1 executor call, got %d", env.executor.calls)
	}
	if env.executor.lastTo != bobWallet {
		t.Errorf("Expected transfer to %s, got %s", bobWallet, env.executor.lastTo)
	}

	transactions, err := env.db.GetUserTransactions(ctx, 1001, 10, 0)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Status != store.TxStatusCompleted {
		t.Errorf("Expected completed status, got %s", transactions[0].Status)
	}
	if transactions[0].Type != store.TxTypeTip {
		t.Errorf("Expected tip type, got %s", transactions[0].Type)
	}
}

func TestTipAmountInFollowUp(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob"))
	if !strings.Contains(reply.Text, "How much") {
		t.Fatalf("Expected amount prompt, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "7.5"))
	if len(reply.Actions) != 2 {
		t.Fatalf("Expected confirmation actions, got reply %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "7.5") {
		t.Errorf("Expected amount in confirmation, got %q", reply.Text)
	}
}

func TestTipBelowMinimum(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 0.5"))
	if !strings.Contains(reply.Text, "below the minimum") {
		t.Errorf("Expected below-minimum rejection, got %q", reply.Text)
	}
	if env.executor.calls != 0 {
		t.Errorf("Expected no executor calls, got %d", env.executor.calls)
	}
}

func TestTipAboveMaximum(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100000))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5000"))
	if !strings.Contains(reply.Text, "above the maximum") {
		t.Errorf("Expected above-maximum rejection, got %q", reply.Text)
	}
}

func TestTipInsufficientBalance(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(3))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 50"))
	if !strings.Contains(reply.Text, "Insufficient balance") {
		t.Errorf("Expected insufficient balance rejection, got %q", reply.Text)
	}
	if env.executor.calls != 0 {
		t.Errorf("Expected no executor calls, got %d", env.executor.calls)
	}
}

func TestTipRejectsSelfAndService(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	env.engine.Handle(ctx, textEvent(555, "servicebot", "/start"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @alice 5"))
	if !strings.Contains(reply.Text, "yourself") {
		t.Errorf("Expected self-tip rejection, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "/tip 555 5"))
	if !strings.Contains(reply.Text, "bot") {
		t.Errorf("Expected service-account rejection, got %q", reply.Text)
	}
}

func TestTipUnknownRecipient(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @ghost 5"))
	if !strings.Contains(reply.Text, "hasn't started") {
		t.Errorf("Expected unknown-user reply, got %q", reply.Text)
	}
}

func TestTipRecipientWithoutWallet(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	env.engine.Handle(ctx, textEvent(1002, "bob", "/start"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	if !strings.Contains(reply.Text, "doesn't have a wallet") {
		t.Errorf("Expected recipient-without-wallet reply, got %q", reply.Text)
	}
}

func TestTipSenderWithoutWallet(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	if !strings.Contains(reply.Text, "don't have a wallet") {
		t.Errorf("Expected no-wallet reply, got %q", reply.Text)
	}
}

func TestTipReplayedConfirmation(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	confirmed := env.engine.sessions.get(1001)
	env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))

	// The session is gone; a replayed press is an out-of-flow action
	reply := env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))
	if strings.Contains(reply.Text, "0xhash") {
		t.Errorf("Replay must not report a transfer, got %q", reply.Text)
	}

	// A resurrected confirmation carrying the already-used token must
	// short-circuit on the idempotency check
	env.engine.sessions.put(1001, confirmed)
	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))
	if !strings.Contains(reply.Text, "already processed") {
		t.Errorf("Expected already-processed reply, got %q", reply.Text)
	}

	if env.executor.calls != 1 {
		t.Errorf("Expected exactly 1 executor call after replay, got %d", env.executor.calls)
	}
	count, err := env.db.CountUserTransactions(ctx, 1001)
	if err != nil {
		t.Fatalf("CountUserTransactions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 transaction row after replay, got %d", count)
	}
}

func TestTipExecutorFailureMarksRowFailed(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)
	env.executor.err = fmt.Errorf("%w: submission refused", store.ErrTransferFailed)

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	reply := env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))
	if !strings.Contains(reply.Text, "could not be completed") {
		t.Errorf("Expected failure reply, got %q", reply.Text)
	}

	transactions, err := env.db.GetUserTransactions(ctx, 1001, 10, 0)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction row, got %d", len(transactions))
	}
	if transactions[0].Status != store.TxStatusFailed {
		t.Errorf("Expected failed status, got %s", transactions[0].Status)
	}
}

func TestTipCancelled(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	reply := env.engine.Handle(ctx, actionEvent(1001, "alice", "cancel_tip"))
	if !strings.Contains(reply.Text, "cancelled") {
		t.Errorf("Expected cancellation reply, got %q", reply.Text)
	}
	if env.executor.calls != 0 {
		t.Errorf("Expected no executor calls after cancel, got %d", env.executor.calls)
	}

	count, err := env.db.CountUserTransactions(ctx, 1001)
	if err != nil {
		t.Fatalf("CountUserTransactions failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no transaction rows after cancel, got %d", count)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(50))
	destination := "0x00000000000000000000000000000000000000cc"

	reply := env.engine.Handle(ctx, actionEvent(1001, "alice", "wallet_withdraw"))
	if !strings.Contains(reply.Text, "destination address") {
		t.Fatalf("Expected address prompt, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", destination))
	if !strings.Contains(reply.Text, "Available: 50") {
		t.Fatalf("Expected amount prompt with snapshot, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "20"))
	if len(reply.Actions) != 2 {
		t.Fatalf("Expected confirmation actions, got reply %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_withdraw"))
	if !strings.Contains(reply.Text, "0xhash1") {
		t.Errorf("Expected success with tx hash, got %q", reply.Text)
	}
	if env.executor.lastTo != destination {
		t.Errorf("Expected transfer to %s, got %s", destination, env.executor.lastTo)
	}

	transactions, err := env.db.GetUserTransactions(ctx, 1001, 10, 0)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Type != store.TxTypeWithdraw {
		t.Errorf("Expected withdraw type, got %s", transactions[0].Type)
	}
}

func TestWithdrawalInvalidAddressStaysInFlow(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(50))

	env.engine.Handle(ctx, actionEvent(1001, "alice", "wallet_withdraw"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "0x1234"))
	if !strings.Contains(reply.Text, "not valid") {
		t.Fatalf("Expected invalid-address reply, got %q", reply.Text)
	}

	// Still awaiting an address: a valid one now advances the flow
	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "0x00000000000000000000000000000000000000cc"))
	if !strings.Contains(reply.Text, "Available") {
		t.Errorf("Expected amount prompt after retry, got %q", reply.Text)
	}
}

func TestWithdrawalAmountBoundedBySnapshot(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(50))

	env.engine.Handle(ctx, actionEvent(1001, "alice", "wallet_withdraw"))
	env.engine.Handle(ctx, textEvent(1001, "alice", "0x00000000000000000000000000000000000000cc"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "75"))
	if !strings.Contains(reply.Text, "exceeds your available balance") {
		t.Fatalf("Expected over-balance rejection, got %q", reply.Text)
	}

	// The flow survives the rejection
	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "25"))
	if len(reply.Actions) != 2 {
		t.Errorf("Expected confirmation after retry, got %q", reply.Text)
	}
}

func TestCommandPreemptsActiveFlow(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/help"))
	if !strings.Contains(reply.Text, "Commands:") {
		t.Fatalf("Expected help after preemption, got %q", reply.Text)
	}

	// The old confirmation is dead
	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))
	if env.executor.calls != 0 {
		t.Errorf("Expected no executor calls after preemption, got %d", env.executor.calls)
	}
}

func TestBalanceUsesCache(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(42))
	env.oracle.calls = 0

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/balance"))
	if !strings.Contains(reply.Text, "42") {
		t.Fatalf("Expected balance in reply, got %q", reply.Text)
	}
	if env.oracle.calls != 1 {
		t.Fatalf("Expected 1 oracle read, got %d", env.oracle.calls)
	}

	// Second read within the TTL is served from cache
	env.engine.Handle(ctx, textEvent(1001, "alice", "/balance"))
	if env.oracle.calls != 1 {
		t.Errorf("Expected cached second read, got %d oracle calls", env.oracle.calls)
	}
}

func TestTipInvalidatesBalanceCache(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	aliceWallet := registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	env.engine.Handle(ctx, textEvent(1001, "alice", "/balance"))
	env.oracle.calls = 0

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))

	env.oracle.balances[aliceWallet] = decimal.NewFromInt(95)
	env.oracle.calls = 0

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/balance"))
	if env.oracle.calls != 1 {
		t.Errorf("Expected a fresh oracle read after the tip, got %d calls", env.oracle.calls)
	}
	if !strings.Contains(reply.Text, "95") {
		t.Errorf("Expected updated balance, got %q", reply.Text)
	}
}

func TestStartWithReferral(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))

	env.engine.Handle(ctx, textEvent(1002, "bob", "/start ref1001"))
	// Restarting must not double-count
	env.engine.Handle(ctx, textEvent(1002, "bob", "/start ref1001"))

	count, _, err := env.db.GetUserReferrals(ctx, 1001)
	if err != nil {
		t.Fatalf("GetUserReferrals failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 referral, got %d", count)
	}

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/referral"))
	if !strings.Contains(reply.Text, "referred 1 users") {
		t.Errorf("Expected referral stats, got %q", reply.Text)
	}
}

func TestTransactionsHistory(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	registerUser(t, env, 1001, "alice", decimal.NewFromInt(100))
	registerUser(t, env, 1002, "bob", decimal.Zero)

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/transactions"))
	if !strings.Contains(reply.Text, "No transactions") {
		t.Fatalf("Expected empty history, got %q", reply.Text)
	}

	env.engine.Handle(ctx, textEvent(1001, "alice", "/tip @bob 5"))
	env.engine.Handle(ctx, actionEvent(1001, "alice", "confirm_tip"))

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "/transactions"))
	if !strings.Contains(reply.Text, "- 5 tokens") {
		t.Errorf("Expected an outgoing entry, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1002, "bob", "/transactions"))
	if !strings.Contains(reply.Text, "+ 5 tokens") {
		t.Errorf("Expected an incoming entry, got %q", reply.Text)
	}
}

func TestLanguageSelection(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))

	reply := env.engine.Handle(ctx, actionEvent(1001, "alice", "language_en"))
	if !strings.Contains(reply.Text, "Language set") {
		t.Errorf("Expected language confirmation, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "language_xx"))
	if !strings.Contains(reply.Text, "not available") {
		t.Errorf("Expected unknown-language reply, got %q", reply.Text)
	}
}

func TestUnmatchedEventsAreInvalidInput(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	env.engine.Handle(ctx, textEvent(1001, "alice", "/start"))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "hello there"))
	if !strings.Contains(reply.Text, "didn't understand") {
		t.Errorf("Expected invalid-input reply for stray text, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, textEvent(1001, "alice", "/frobnicate"))
	if !strings.Contains(reply.Text, "didn't understand") {
		t.Errorf("Expected invalid-input reply for unknown command, got %q", reply.Text)
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "bogus_action"))
	if !strings.Contains(reply.Text, "didn't understand") {
		t.Errorf("Expected invalid-input reply for stray action, got %q", reply.Text)
	}
}

func TestWalletMenu(t *testing.T) {
	env, cleanup := setupEngine(t)
	defer cleanup()
	ctx := context.Background()

	address := registerUser(t, env, 1001, "alice", decimal.NewFromInt(10))

	reply := env.engine.Handle(ctx, textEvent(1001, "alice", "/wallet"))
	if !strings.Contains(reply.Text, address) {
		t.Errorf("Expected wallet address in menu, got %q", reply.Text)
	}
	if len(reply.Actions) != 2 {
		t.Fatalf("Expected deposit/withdraw actions, got %d", len(reply.Actions))
	}

	reply = env.engine.Handle(ctx, actionEvent(1001, "alice", "wallet_deposit"))
	if !strings.Contains(reply.Text, address) {
		t.Errorf("Expected deposit address, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "0x0000000000000000000000000000000000000fee") {
		t.Errorf("Expected token contract in deposit instructions, got %q", reply.Text)
	}
}
