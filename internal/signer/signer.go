package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet is the custodial gateway signer. It signs EIP-712 typed-data
// payloads handed out by the swap API and raw settlement transactions.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewWallet(privateKeyHex string) (*Wallet, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTypedData hashes the typed data per EIP-712 and signs it, returning the
// 65-byte hex signature with V adjusted to 27/28 as verifiers expect.
func (w *Wallet) SignTypedData(typed *apitypes.TypedData) (string, error) {
	if typed == nil {
		return "", fmt.Errorf("typed data payload is required")
	}

	hash, _, err := apitypes.TypedDataAndHash(*typed)
	if err != nil {
		return "", fmt.Errorf("failed to hash typed data: %w", err)
	}

	signature, err := crypto.Sign(hash, w.key)
	if err != nil {
		return "", err
	}

	// crypto.Sign returns [R || S || V] with V in {0, 1}
	if signature[64] < 27 {
		signature[64] += 27
	}

	return "0x" + common.Bytes2Hex(signature), nil
}

// SignTx signs a settlement transaction for the given chain.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
}
