package chain

import (
	"context"
	"fmt"
	"math/big"

	"tipbot-go/internal/store"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultTokenDecimals = 18

// Oracle reads token balances from the chain and scales them between the
// contract's smallest unit and human-readable decimals. The contract's
// decimal precision is read once at construction.
type Oracle struct {
	backend  Backend
	token    common.Address
	decimals int32
}

func NewOracle(ctx context.Context, backend Backend, token common.Address) *Oracle {
	o := &Oracle{backend: backend, token: token, decimals: defaultTokenDecimals}

	d, err := o.readDecimals(ctx)
	if err != nil {
		zap.L().Warn("Could not read token decimals, using default",
			zap.Int32("default", defaultTokenDecimals), zap.Error(err))
		return o
	}
	o.decimals = d
	zap.L().Info("Token decimals resolved", zap.Int32("decimals", d), zap.String("token", token.Hex()))
	return o
}

func (o *Oracle) readDecimals(ctx context.Context) (int32, error) {
	ret, err := o.backend.CallContract(ctx, ethereum.CallMsg{To: &o.token, Data: selDecimals}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals() call failed: %w", err)
	}
	if len(ret) == 0 {
		return 0, fmt.Errorf("decimals() returned no data")
	}
	return int32(new(big.Int).SetBytes(ret).Int64()), nil
}

// Decimals returns the cached token precision.
func (o *Oracle) Decimals() int32 {
	return o.decimals
}

// Balance returns the live token balance for an address. RPC failures
// resolve to zero: callers on display paths show zero, callers on
// authorization paths reject the spend against zero. Neither overstates
// the balance.
func (o *Oracle) Balance(ctx context.Context, address string) decimal.Decimal {
	if address == "" {
		return decimal.Zero
	}

	owner := common.HexToAddress(address)
	ret, err := o.backend.CallContract(ctx, ethereum.CallMsg{To: &o.token, Data: encodeBalanceOf(owner)}, nil)
	if err != nil {
		zap.L().Warn("Balance read failed", zap.String("address", address), zap.Error(err))
		return decimal.Zero
	}
	if len(ret) == 0 {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(new(big.Int).SetBytes(ret), -o.decimals)
}

// ToBaseUnits converts a human-scaled amount to the token's smallest
// unit. Amounts with more precision than the token supports are rejected,
// never rounded.
func (o *Oracle) ToBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	scaled := amount.Shift(o.decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: amount %s exceeds token precision of %d decimals",
			store.ErrValidation, amount, o.decimals)
	}
	return scaled.BigInt(), nil
}
