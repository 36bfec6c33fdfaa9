package signer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEvenV(t *testing.T) {
	sig := "0x" + strings.Repeat("11", 32) + strings.Repeat("22", 32) + "1c" // v = 28

	split, err := Split(sig)
	assert.NoError(t, err)
	assert.Equal(t, 28, split.V)
	assert.Equal(t, 1, split.RecoveryParam) // 1 - (28 % 2)
	assert.Equal(t, SignatureTypeEIP712, split.SignatureType)
	assert.Equal(t, "0x"+strings.Repeat("11", 32), split.R)
	assert.Equal(t, "0x"+strings.Repeat("22", 32), split.S)
}

func TestSplitOddV(t *testing.T) {
	sig := "0x" + strings.Repeat("aa", 32) + strings.Repeat("bb", 32) + "1b" // v = 27

	split, err := Split(sig)
	assert.NoError(t, err)
	assert.Equal(t, 27, split.V)
	assert.Equal(t, 0, split.RecoveryParam) // 1 - (27 % 2)
}

func TestSplitPadsShortScalars(t *testing.T) {
	// r and s with leading zero bytes must keep their full 64-char width.
	r := strings.Repeat("00", 31) + "05"
	s := strings.Repeat("00", 30) + "abcd"
	sig := "0x" + r + s + "1b"

	split, err := Split(sig)
	assert.NoError(t, err)
	assert.Len(t, split.R, 66) // 0x + 64 hex chars
	assert.Len(t, split.S, 66)
	assert.Equal(t, "0x"+r, split.R)
	assert.Equal(t, "0x"+s, split.S)
}

func TestSplitRejectsWrongLength(t *testing.T) {
	_, err := Split("0x1234")
	assert.Error(t, err)

	_, err = Split("0x" + strings.Repeat("00", 64))
	assert.Error(t, err)
}

func TestSplitRejectsBadHex(t *testing.T) {
	_, err := Split("0x" + strings.Repeat("zz", 65))
	assert.Error(t, err)
}
