package signer

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Signature type identifiers used by the settlement contracts.
const (
	SignatureTypeIllegal = 0
	SignatureTypeInvalid = 1
	SignatureTypeEIP712  = 2
	SignatureTypeEthSign = 3
)

// Signature is the split/padded (r, s, v) form the relayer expects. R and S
// are always exactly 32 bytes of hex (64 characters, left-padded): the
// verifier assumes fixed-width fields and a short scalar with its leading
// zero byte dropped would corrupt decoding.
type Signature struct {
	V             int    `json:"v"`
	R             string `json:"r"`
	S             string `json:"s"`
	RecoveryParam int    `json:"recoveryParam"`
	SignatureType int    `json:"signatureType"`
}

// Split decomposes a 65-byte hex signature into its scalar components. V is
// the final byte taken as a plain integer; r and s are opaque scalars, not
// reduced mod the curve order here.
func Split(sigHex string) (*Signature, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(sigHex, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(b) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(b))
	}

	r := new(big.Int).SetBytes(b[0:32])
	s := new(big.Int).SetBytes(b[32:64])
	v := int(b[64])

	return &Signature{
		V:             v,
		R:             padScalar(r),
		S:             padScalar(s),
		RecoveryParam: 1 - (v % 2),
		SignatureType: SignatureTypeEIP712,
	}, nil
}

func padScalar(n *big.Int) string {
	return fmt.Sprintf("0x%064x", n)
}
