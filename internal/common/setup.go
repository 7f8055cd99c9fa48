package common

import (
	"context"
	"log"
	"strings"
	"time"

	"tipbot-go/internal/cache"
	"tipbot-go/internal/chain"
	"tipbot-go/internal/database"
	"tipbot-go/internal/flow"
	"tipbot-go/internal/i18n"
	"tipbot-go/internal/idempotency"
	"tipbot-go/internal/models"
	"tipbot-go/internal/wallet"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService  *database.Service
	RpcClient  *ethclient.Client
	Oracle     *chain.Oracle
	Executor   *chain.Executor
	Custody    *wallet.Custody
	Cache      cache.BalanceCache
	Engine     *flow.Engine
	redisCache *cache.Redis
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the full service graph in dependency order.
// Every collaborator is constructed here and handed down; nothing below
// this layer reaches for globals.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Connecting to RPC endpoint", zap.String("url", cfg.Chain.RpcUrl))
	rpcClient, err := ethclient.DialContext(ctx, cfg.Chain.RpcUrl)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	token := ethcommon.HexToAddress(cfg.Chain.TokenAddress)
	oracle := chain.NewOracle(ctx, rpcClient, token)
	executor := chain.NewExecutor(rpcClient, oracle, cfg.Chain)

	cipher, err := wallet.NewCipher(cfg.Wallet.EncryptionKey, cfg.Wallet.PreviousKeys)
	if err != nil {
		rpcClient.Close()
		dbService.Close()
		return nil, err
	}
	custody := wallet.NewCustody(cipher, dbService)

	services := &Services{
		DbService: dbService,
		RpcClient: rpcClient,
		Oracle:    oracle,
		Executor:  executor,
		Custody:   custody,
	}

	if cfg.Cache.UseRedis {
		redisCache, err := cache.NewRedis(cfg.Cache.RedisUrl)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.redisCache = redisCache
		services.Cache = redisCache
		zap.L().Info("Using Redis balance cache")
	} else {
		services.Cache = cache.NewMemory()
	}

	catalog, err := i18n.Load(cfg.Bot.LocalesFile, cfg.Bot.DefaultLanguage)
	if err != nil {
		services.Close()
		return nil, err
	}

	services.Engine = flow.NewEngine(flow.EngineConfig{
		Store:        dbService,
		Custody:      custody,
		Oracle:       oracle,
		Executor:     executor,
		Cache:        services.Cache,
		Ledger:       idempotency.NewLedger(dbService),
		Catalog:      catalog,
		Bot:          cfg.Bot,
		CacheTtl:     cfg.Cache.BalanceTtl,
		TokenAddress: cfg.Chain.TokenAddress,
	})

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without
// the RPC stack. Useful for read-only operations like listing balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.redisCache != nil {
		if err := cs.redisCache.Close(); err != nil {
			zap.L().Warn("Unable to close Redis cache", zap.Error(err))
		}
	}
	if cs.RpcClient != nil {
		cs.RpcClient.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

// ReportStalePending logs transfers stuck in the pending state, which is
// the operator's signal that an outcome needs manual reconciliation
// against the chain.
func ReportStalePending(ctx context.Context, dbService *database.Service, olderThan time.Duration) {
	stale, err := dbService.ListStalePending(ctx, olderThan)
	if err != nil {
		zap.L().Warn("Unable to list stale pending transfers", zap.Error(err))
		return
	}
	for _, tx := range stale {
		zap.L().Warn("Stale pending transfer",
			zap.Int64("transaction_id", tx.Id),
			zap.Int64("sender_id", tx.SenderId),
			zap.String("amount", tx.Amount.String()),
			zap.String("type", tx.Type),
			zap.Time("created_at", tx.CreatedAt))
	}
	if len(stale) == 0 {
		zap.L().Info("No stale pending transfers")
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
