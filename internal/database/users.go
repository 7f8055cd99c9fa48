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
	"errors"
	"fmt"

	"tipbot-go/internal/models"
	"tipbot-go/internal/store"

	"go.uber.org/zap"
)

// CreateUserIfNotExists inserts a new user row or refreshes the display
// name fields and last-active timestamp of an existing one. The referrer
// is recorded only for brand-new users; self-referral is dropped.
func (s *Service) CreateUserIfNotExists(ctx context.Context, params store.CreateUserParams) (bool, error) {
	existing, err := s.GetUserById(ctx, params.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	if existing != nil {
		_, err := s.db.ExecContext(ctx, queryTouchUser,
			params.Username, params.FirstName, params.LastName, params.UserId)
		if err != nil {
			return false, fmt.Errorf("unable to refresh user: %w", err)
		}
		return false, nil
	}

	referrerId := params.ReferrerId
	if referrerId == params.UserId {
		referrerId = 0
	}

	language := params.Language
	if language == "" {
		language = "en"
	}

	_, err = s.db.ExecContext(ctx, queryInsertUser,
		params.UserId, params.Username, params.FirstName, params.LastName, language, referrerId)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.Int64("user_id", params.UserId), zap.Error(err))
		return false, fmt.Errorf("unable to insert user: %w", err)
	}

	zap.L().Info("User created", zap.Int64("user_id", params.UserId), zap.Int64("referrer_id", referrerId))
	return true, nil
}

func (s *Service) GetUserById(ctx context.Context, userId int64) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, queryGetUserById, userId).Scan(
		&user.Id, &user.Username, &user.FirstName, &user.LastName, &user.Language,
		&user.WalletAddress, &user.EncryptedPrivateKey, &user.ReferrerId, &user.ReferralCount,
		&user.CreatedAt, &user.LastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
		}
		return nil, fmt.Errorf("unable to query user by id: %w", err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, queryGetUserByUsername, username).Scan(
		&user.Id, &user.Username, &user.FirstName, &user.LastName, &user.Language,
		&user.WalletAddress, &user.EncryptedPrivateKey, &user.ReferrerId, &user.ReferralCount,
		&user.CreatedAt, &user.LastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user @%s", store.ErrNotFound, username)
		}
		return nil, fmt.Errorf("unable to query user by username: %w", err)
	}
	return &user, nil
}

func (s *Service) ListRegisteredUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryListRegisteredUsers)
	if err != nil {
		return nil, fmt.Errorf("unable to query registered users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.Id, &user.Username, &user.FirstName, &user.LastName, &user.Language,
			&user.WalletAddress, &user.EncryptedPrivateKey, &user.ReferrerId, &user.ReferralCount,
			&user.CreatedAt, &user.LastActive)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (s *Service) UpdateUserLanguage(ctx context.Context, userId int64, language string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateUserLanguage, language, userId)
	if err != nil {
		return fmt.Errorf("unable to update language: %w", err)
	}
	return requireRowsAffected(result, userId)
}

func (s *Service) GetUserLanguage(ctx context.Context, userId int64) (string, error) {
	var language string
	err := s.db.QueryRowContext(ctx, queryGetUserLanguage, userId).Scan(&language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
		}
		return "", fmt.Errorf("unable to query user language: %w", err)
	}
	return language, nil
}

// UpdateUserWallet persists the wallet address and encrypted key blob.
// The caller is the custody layer; plaintext keys never reach this package.
func (s *Service) UpdateUserWallet(ctx context.Context, userId int64, address, encryptedKey string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateUserWallet, address, encryptedKey, userId)
	if err != nil {
		return fmt.Errorf("unable to update wallet: %w", err)
	}
	return requireRowsAffected(result, userId)
}

func (s *Service) GetUserWallet(ctx context.Context, userId int64) (string, error) {
	var address string
	err := s.db.QueryRowContext(ctx, queryGetUserWallet, userId).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
		}
		return "", fmt.Errorf("unable to query user wallet: %w", err)
	}
	return address, nil
}

func (s *Service) GetEncryptedKey(ctx context.Context, userId int64) (string, error) {
	var encryptedKey string
	err := s.db.QueryRowContext(ctx, queryGetEncryptedKey, userId).Scan(&encryptedKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
		}
		return "", fmt.Errorf("unable to query encrypted key: %w", err)
	}
	return encryptedKey, nil
}

func (s *Service) IncrementReferralCount(ctx context.Context, userId int64) error {
	result, err := s.db.ExecContext(ctx, queryIncrementReferralCount, userId)
	if err != nil {
		return fmt.Errorf("unable to increment referral count: %w", err)
	}
	return requireRowsAffected(result, userId)
}

func (s *Service) GetUserReferrals(ctx context.Context, userId int64) (int, []int64, error) {
	var count int
	err := s.db.QueryRowContext(ctx, queryGetReferralCount, userId).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
		}
		return 0, nil, fmt.Errorf("unable to query referral count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryGetReferredUsers, userId)
	if err != nil {
		return 0, nil, fmt.Errorf("unable to query referred users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var referredIds []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, nil, fmt.Errorf("unable to scan referred user: %w", err)
		}
		referredIds = append(referredIds, id)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("error iterating referred users: %w", err)
	}

	return count, referredIds, nil
}

func requireRowsAffected(result sql.Result, userId int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, userId)
	}
	return nil
}
