package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	key, _ := crypto.GenerateKey()
	keyHex := hexutil.Encode(crypto.FromECDSA(key))[2:] // Remove 0x

	wallet, err := NewWallet(keyHex)
	assert.NoError(t, err)
	return wallet
}

func testTypedData(taker string) *apitypes.TypedData {
	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Trade": {
				{Name: "taker", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "Trade",
		Domain: apitypes.TypedDataDomain{
			Name:    "DexGate Test",
			ChainId: math.NewHexOrDecimal256(137),
		},
		Message: apitypes.TypedDataMessage{
			"taker":  taker,
			"amount": "1000000",
		},
	}
}

func TestWallet_SignTypedData(t *testing.T) {
	wallet := newTestWallet(t)

	sig, err := wallet.SignTypedData(testTypedData(wallet.Address().Hex()))
	assert.NoError(t, err)
	assert.Equal(t, 132, len(sig)) // 0x + 65 bytes * 2 = 132

	split, err := Split(sig)
	assert.NoError(t, err)
	assert.Contains(t, []int{27, 28}, split.V)
	assert.Contains(t, []int{0, 1}, split.RecoveryParam)
}

func TestWallet_SignTypedDataNil(t *testing.T) {
	wallet := newTestWallet(t)

	_, err := wallet.SignTypedData(nil)
	assert.Error(t, err)
}

func TestNewWalletRejectsBadKey(t *testing.T) {
	_, err := NewWallet("")
	assert.Error(t, err)

	_, err = NewWallet("not-a-key")
	assert.Error(t, err)
}
