package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Chain    ChainConfig
	Cache    CacheConfig
	Wallet   WalletConfig
	Bot      BotConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ChainConfig holds blockchain RPC and token contract settings
type ChainConfig struct {
	RpcUrl              string
	TokenAddress        string
	GasLimit            uint64
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
}

// CacheConfig holds balance cache settings. The cache serves display
// paths only; spend authorization always re-reads the chain.
type CacheConfig struct {
	BalanceTtl time.Duration
	UseRedis   bool
	RedisUrl   string
}

// WalletConfig holds custody key encryption settings. PreviousKeys are
// tried on decrypt only, which is the rotation path for the primary key.
type WalletConfig struct {
	EncryptionKey string
	PreviousKeys  []string
}

// BotConfig holds conversational flow settings
type BotConfig struct {
	MinTipAmount    decimal.Decimal
	MaxTipAmount    decimal.Decimal
	ReferralBonus   decimal.Decimal
	DefaultLanguage string
	LocalesFile     string
	ServiceUserId   int64
	HistoryPageSize int
}
