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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"tipbot-go/internal/models"
	"tipbot-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Create users table keyed by the chat-platform user id
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		wallet_address TEXT NOT NULL DEFAULT '',
		encrypted_private_key TEXT NOT NULL DEFAULT '',
		referrer_id INTEGER NOT NULL DEFAULT 0,
		referral_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on username for recipient lookups
	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	-- Create index on wallet address for reverse lookups
	CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address);
	-- Create index on referrer for referral listings
	CREATE INDEX IF NOT EXISTS idx_users_referrer ON users(referrer_id);

	-- Create transactions table; amounts are stored as TEXT to preserve
	-- decimal precision
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL DEFAULT 0,
		recipient_id INTEGER NOT NULL DEFAULT 0,
		sender_wallet TEXT NOT NULL DEFAULT '',
		recipient_wallet TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		tx_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		idempotency_key TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- The uniqueness constraint on idempotency_key is the only true
	-- concurrency guard in the system; NULL keys are exempt
	CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_idempotency_key
		ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}
