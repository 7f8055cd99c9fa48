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

package main

import (
	"context"

	"tipbot-go/internal/common"
	"tipbot-go/internal/config"
	"tipbot-go/internal/i18n"
	"tipbot-go/internal/wallet"

	"go.uber.org/zap"
)

// Setup validates the environment and creates the database schema so the
// bot's first real start fails fast on configuration rather than mid-flow.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	logger.Info("Running setup")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if _, err := wallet.NewCipher(cfg.Wallet.EncryptionKey, cfg.Wallet.PreviousKeys); err != nil {
		logger.Fatal("Invalid wallet encryption key", zap.Error(err))
	}
	logger.Info("Wallet encryption key validated",
		zap.Int("previous_keys", len(cfg.Wallet.PreviousKeys)))

	catalog, err := i18n.Load(cfg.Bot.LocalesFile, cfg.Bot.DefaultLanguage)
	if err != nil {
		logger.Fatal("Failed to load locales", zap.Error(err))
	}
	logger.Info("Locales loaded", zap.Strings("languages", catalog.Languages()))

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	logger.Info("Database schema ready", zap.String("path", cfg.Database.Path))
	logger.Info("Setup complete")
}
