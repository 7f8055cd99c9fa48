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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tipbot-go/internal/common"
	"tipbot-go/internal/config"
	"tipbot-go/internal/transport"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	logger.Info("Starting tip bot")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Transfers still pending from a previous run need an operator to
	// reconcile their outcome against the chain before users retry.
	common.ReportStalePending(ctx, services.DbService, cfg.Chain.ReceiptTimeout)

	console := transport.NewConsole(services.Engine, os.Stdin, os.Stdout)
	logger.Info("Listening for events",
		zap.String("token_address", cfg.Chain.TokenAddress))

	if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Transport terminated", zap.Error(err))
	}

	logger.Info("Shutting down")
}
