package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"tipbot-go/internal/store"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Custody generates keypairs and holds them encrypted against the user
// record. Plaintext key material exists only inside CreateWallet and
// SignTransfer; it is never logged and never returned to the transport.
type Custody struct {
	cipher *Cipher
	store  store.Store
}

func NewCustody(cipher *Cipher, st store.Store) *Custody {
	return &Custody{cipher: cipher, store: st}
}

// CreateWallet generates a fresh keypair. The caller must persist the key
// via StoreWallet immediately; nothing is written here.
func (c *Custody) CreateWallet() (address, privateKeyHex string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("unable to generate keypair: %w", err)
	}
	address = crypto.PubkeyToAddress(key.PublicKey).Hex()
	privateKeyHex = hex.EncodeToString(crypto.FromECDSA(key))
	return address, privateKeyHex, nil
}

// StoreWallet encrypts the key and persists (address, ciphertext) against
// the user.
func (c *Custody) StoreWallet(ctx context.Context, userId int64, address, privateKeyHex string) error {
	encrypted, err := c.cipher.Encrypt([]byte(privateKeyHex))
	if err != nil {
		return fmt.Errorf("unable to encrypt custody key: %w", err)
	}
	if err := c.store.UpdateUserWallet(ctx, userId, address, encrypted); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	zap.L().Info("Custodial wallet stored", zap.Int64("user_id", userId), zap.String("address", address))
	return nil
}

// Address returns the user's wallet address, empty when unregistered.
func (c *Custody) Address(ctx context.Context, userId int64) (string, error) {
	return c.store.GetUserWallet(ctx, userId)
}

// SignTransfer decrypts the user's key only within this call, signs the
// transaction, and drops the plaintext before returning.
func (c *Custody) SignTransfer(ctx context.Context, userId int64, tx *types.Transaction, chainId *big.Int) (*types.Transaction, error) {
	encrypted, err := c.store.GetEncryptedKey(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to load custody key: %w", err)
	}
	if encrypted == "" {
		return nil, fmt.Errorf("%w: user %d", store.ErrKeyUnavailable, userId)
	}

	plaintext, err := c.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(string(plaintext), "0x"))
	zeroBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: stored key is malformed", store.ErrDecryption)
	}

	signer := types.LatestSignerForChainID(chainId)
	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, fmt.Errorf("unable to sign transfer: %w", err)
	}
	return signed, nil
}

// SignerFor binds the custody store to one user for a single transfer.
func (c *Custody) SignerFor(userId int64) *UserSigner {
	return &UserSigner{custody: c, userId: userId}
}

// UserSigner satisfies the executor's signer contract for one user.
type UserSigner struct {
	custody *Custody
	userId  int64
}

func (s *UserSigner) Sign(ctx context.Context, tx *types.Transaction, chainId *big.Int) (*types.Transaction, error) {
	return s.custody.SignTransfer(ctx, s.userId, tx, chainId)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
