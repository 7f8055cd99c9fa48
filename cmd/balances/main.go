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
	"flag"
	"fmt"

	"tipbot-go/internal/chain"
	"tipbot-go/internal/common"
	"tipbot-go/internal/config"
	"tipbot-go/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printBalances(users []models.User, balances map[int64]decimal.Decimal) {
	common.PrintHeader("Registered wallet balances", common.DefaultWidth)

	total := decimal.Zero
	for i, user := range users {
		isLast := i == len(users)-1
		balance := balances[user.Id]
		total = total.Add(balance)
		fmt.Printf("%s %-24s %-44s %s\n",
			common.BoxPrefix(isLast), user.DisplayName(), user.WalletAddress, balance.String())
	}

	common.PrintFooter(fmt.Sprintf("Users: %d  Total: %s", len(users), total.String()), common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.Int64("user", 0, "Report a single user id (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	rpcClient, err := ethclient.DialContext(ctx, cfg.Chain.RpcUrl)
	if err != nil {
		logger.Fatal("Failed to connect to RPC endpoint", zap.Error(err))
	}
	defer rpcClient.Close()

	oracle := chain.NewOracle(ctx, rpcClient, ethcommon.HexToAddress(cfg.Chain.TokenAddress))

	users, err := dbService.ListRegisteredUsers(ctx)
	if err != nil {
		logger.Fatal("Failed to list registered users", zap.Error(err))
	}

	if *userFlag != 0 {
		filtered := users[:0]
		for _, user := range users {
			if user.Id == *userFlag {
				filtered = append(filtered, user)
			}
		}
		users = filtered
	}

	if len(users) == 0 {
		logger.Info("No registered wallets found")
		return
	}

	balances := make(map[int64]decimal.Decimal, len(users))
	for _, user := range users {
		balances[user.Id] = oracle.Balance(ctx, user.WalletAddress)
	}

	printBalances(users, balances)
	logger.Info("Balance report complete", zap.Int("users", len(users)))
}
