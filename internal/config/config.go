/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tipbot-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	receiptTimeout, err := getEnvDuration("RECEIPT_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	receiptPollInterval, err := getEnvDuration("RECEIPT_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	balanceTtl, err := getEnvDuration("BALANCE_CACHE_TTL", 300*time.Second)
	if err != nil {
		return nil, err
	}

	minTip, err := getEnvDecimal("MIN_TIP_AMOUNT", "1.0")
	if err != nil {
		return nil, err
	}

	maxTip, err := getEnvDecimal("MAX_TIP_AMOUNT", "1000.0")
	if err != nil {
		return nil, err
	}

	referralBonus, err := getEnvDecimal("REFERRAL_BONUS", "10.0")
	if err != nil {
		return nil, err
	}

	encryptionKey := os.Getenv("WALLET_ENCRYPTION_KEY")
	if encryptionKey == "" {
		return nil, fmt.Errorf("WALLET_ENCRYPTION_KEY is required (64 hex characters); " +
			"generating a fresh key per process would orphan every stored custody key")
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "tipbot.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Chain: models.ChainConfig{
			RpcUrl:              getEnvString("RPC_URL", "https://rpc-mumbai.maticvigil.com"),
			TokenAddress:        getEnvString("TOKEN_ADDRESS", "0x0000000000000000000000000000000000000000"),
			GasLimit:            uint64(getEnvInt("CHAIN_GAS_LIMIT", 100000)),
			ReceiptTimeout:      receiptTimeout,
			ReceiptPollInterval: receiptPollInterval,
		},
		Cache: models.CacheConfig{
			BalanceTtl: balanceTtl,
			UseRedis:   getEnvBool("USE_REDIS", false),
			RedisUrl:   getEnvString("REDIS_URL", "redis://localhost:6379/0"),
		},
		Wallet: models.WalletConfig{
			EncryptionKey: encryptionKey,
			PreviousKeys:  getEnvList("WALLET_ENCRYPTION_KEY_PREVIOUS"),
		},
		Bot: models.BotConfig{
			MinTipAmount:    minTip,
			MaxTipAmount:    maxTip,
			ReferralBonus:   referralBonus,
			DefaultLanguage: getEnvString("DEFAULT_LANGUAGE", "en"),
			LocalesFile:     getEnvString("LOCALES_FILE", ""),
			ServiceUserId:   getEnvInt64("SERVICE_USER_ID", 0),
			HistoryPageSize: getEnvInt("HISTORY_PAGE_SIZE", 10),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
