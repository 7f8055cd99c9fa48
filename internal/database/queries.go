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

const (
	// User queries
	queryGetUserById = `
		SELECT user_id, username, first_name, last_name, language,
		       wallet_address, encrypted_private_key, referrer_id, referral_count,
		       created_at, last_active
		FROM users
		WHERE user_id = ?`

	queryGetUserByUsername = `
		SELECT user_id, username, first_name, last_name, language,
		       wallet_address, encrypted_private_key, referrer_id, referral_count,
		       created_at, last_active
		FROM users
		WHERE username = ?`

	queryListRegisteredUsers = `
		SELECT user_id, username, first_name, last_name, language,
		       wallet_address, encrypted_private_key, referrer_id, referral_count,
		       created_at, last_active
		FROM users
		WHERE wallet_address != ''
		ORDER BY created_at`

	queryInsertUser = `
		INSERT INTO users (user_id, username, first_name, last_name, language, referrer_id)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryTouchUser = `
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, last_active = CURRENT_TIMESTAMP
		WHERE user_id = ?`

	queryUpdateUserLanguage = `
		UPDATE users SET language = ? WHERE user_id = ?`

	queryGetUserLanguage = `
		SELECT language FROM users WHERE user_id = ?`

	queryUpdateUserWallet = `
		UPDATE users SET wallet_address = ?, encrypted_private_key = ? WHERE user_id = ?`

	queryGetUserWallet = `
		SELECT wallet_address FROM users WHERE user_id = ?`

	queryGetEncryptedKey = `
		SELECT encrypted_private_key FROM users WHERE user_id = ?`

	queryIncrementReferralCount = `
		UPDATE users SET referral_count = referral_count + 1 WHERE user_id = ?`

	queryGetReferralCount = `
		SELECT referral_count FROM users WHERE user_id = ?`

	queryGetReferredUsers = `
		SELECT user_id FROM users WHERE referrer_id = ? ORDER BY created_at`

	// Transaction queries
	queryInsertPendingTransfer = `
		INSERT INTO transactions (
			sender_id, recipient_id, sender_wallet, recipient_wallet,
			amount, tx_type, status, idempotency_key
		) VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`

	queryCompleteTransfer = `
		UPDATE transactions SET status = 'completed', tx_hash = ? WHERE id = ?`

	queryFailTransfer = `
		UPDATE transactions SET status = 'failed' WHERE id = ?`

	queryGetTransactionByKey = `
		SELECT id, sender_id, recipient_id, sender_wallet, recipient_wallet,
		       amount, tx_hash, tx_type, status, idempotency_key, created_at
		FROM transactions
		WHERE idempotency_key = ?
		LIMIT 1`

	queryGetUserTransactions = `
		SELECT id, sender_id, recipient_id, sender_wallet, recipient_wallet,
		       amount, tx_hash, tx_type, status, idempotency_key, created_at
		FROM transactions
		WHERE sender_id = ? OR recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	queryCountUserTransactions = `
		SELECT COUNT(id) FROM transactions WHERE sender_id = ? OR recipient_id = ?`

	queryListStalePending = `
		SELECT id, sender_id, recipient_id, sender_wallet, recipient_wallet,
		       amount, tx_hash, tx_type, status, idempotency_key, created_at
		FROM transactions
		WHERE status = 'pending' AND created_at < ?
		ORDER BY created_at`
)
