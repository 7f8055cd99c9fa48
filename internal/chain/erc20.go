package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Selectors for the fixed token contract interface.
var (
	selTransfer  = common.FromHex("0xa9059cbb") // transfer(address,uint256)
	selBalanceOf = common.FromHex("0x70a08231") // balanceOf(address)
	selDecimals  = common.FromHex("0x313ce567") // decimals()
)

// encodeTransfer builds transfer(to, amount) calldata.
func encodeTransfer(to common.Address, amount *big.Int) []byte {
	arg1 := common.LeftPadBytes(to.Bytes(), 32)
	arg2 := common.LeftPadBytes(amount.Bytes(), 32)
	data := make([]byte, 0, 4+64)
	data = append(data, selTransfer...)
	data = append(data, arg1...)
	return append(data, arg2...)
}

// encodeBalanceOf builds balanceOf(owner) calldata.
func encodeBalanceOf(owner common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, selBalanceOf...)
	return append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
}
