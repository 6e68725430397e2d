// Package confidential implements the mock "encrypted balance" encoding.
//
// Handles are 0x-prefixed hex: a 16-byte random nonce followed by the
// amount as a 16-byte big-endian fixed-point integer (18 decimals), masked
// with a keyed BLAKE2b digest of the nonce. Anyone holding the key can
// invert it, so it hides nothing; it exists so balances round-trip through
// an opaque string.
package confidential

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

const (
	nonceSize = 16
	valueSize = 16
	handleLen = 2 + 2*(nonceSize+valueSize)

	// Scale is the number of fractional digits a handle preserves.
	Scale = 18
)

var (
	ErrNegative   = errors.New("confidential: negative values are not supported")
	ErrOutOfRange = errors.New("confidential: value exceeds 128-bit fixed-point range")
	ErrBadHandle  = errors.New("confidential: malformed handle")
	maxFixedPoint = new(big.Int).Lsh(big.NewInt(1), 8*valueSize)
)

type Service struct {
	key []byte
}

// New derives the masking key from secret. An empty secret yields a random
// per-process key, so handles do not survive a restart.
func New(secret string) (*Service, error) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		return &Service{key: key}, nil
	}
	sum := blake2b.Sum256([]byte(secret))
	return &Service{key: sum[:]}, nil
}

// Encrypt encodes a non-negative amount, rounded to Scale decimals.
func (s *Service) Encrypt(value decimal.Decimal) (string, error) {
	if value.IsNegative() {
		return "", ErrNegative
	}
	fixed := value.Round(Scale).Shift(Scale).BigInt()
	if fixed.Cmp(maxFixedPoint) >= 0 {
		return "", ErrOutOfRange
	}

	buf := make([]byte, nonceSize+valueSize)
	if _, err := rand.Read(buf[:nonceSize]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	fixed.FillBytes(buf[nonceSize:])

	mask, err := s.mask(buf[:nonceSize])
	if err != nil {
		return "", err
	}
	for i := range mask {
		buf[nonceSize+i] ^= mask[i]
	}
	return "0x" + hex.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt.
func (s *Service) Decrypt(handle string) (decimal.Decimal, error) {
	if len(handle) != handleLen || !strings.HasPrefix(handle, "0x") {
		return decimal.Zero, ErrBadHandle
	}
	buf, err := hex.DecodeString(handle[2:])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrBadHandle, err)
	}

	mask, err := s.mask(buf[:nonceSize])
	if err != nil {
		return decimal.Zero, err
	}
	for i := range mask {
		buf[nonceSize+i] ^= mask[i]
	}
	fixed := new(big.Int).SetBytes(buf[nonceSize:])
	return decimal.NewFromBigInt(fixed, -Scale), nil
}

func (s *Service) mask(nonce []byte) ([]byte, error) {
	h, err := blake2b.New(valueSize, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to init blake2b: %w", err)
	}
	h.Write(nonce)
	return h.Sum(nil), nil
}

// GenerateTxHash returns a random 32-byte hex string shaped like a chain tx hash.
func (s *Service) GenerateTxHash() (string, error) {
	return GenerateTxHash()
}

func GenerateTxHash() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate tx hash: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}
