package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the narrow slice of the RPC client the core needs. It is
// satisfied by *ethclient.Client and injected so tests can substitute a
// fake chain.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer produces a signed transaction without exposing key material.
// The custody layer provides per-user implementations.
type Signer interface {
	Sign(ctx context.Context, tx *types.Transaction, chainId *big.Int) (*types.Transaction, error)
}
