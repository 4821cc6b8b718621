package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// HexBytes stores an arbitrary byte blob and marshals as lowercase hex
// without the 0x prefix, matching the store's on-disk convention.
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := decodeHex(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// decodeHex accepts a hex string with or without the 0x prefix.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	if s == "" {
		return []byte{}, nil
	}
	return hex.DecodeString(s)
}

// Address is a 20-byte account address, canonicalized to lowercase hex
// without 0x for storage and JSON.
type Address [20]byte

func HexToAddress(s string) Address {
	var a Address
	b, _ := decodeHex(s)
	if len(b) > len(a) {
		b = b[len(b)-len(a):]
	}
	copy(a[len(a)-len(b):], b)
	return a
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = HexToAddress(s)
	return nil
}

// Hash is a 32-byte hash (block hash, tx hash, topic).
type Hash [32]byte

func HexToHash(s string) Hash {
	var h Hash
	b, _ := decodeHex(s)
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*h = HexToHash(s)
	return nil
}

// U256 wraps holiman/uint256 for 256-bit on-chain quantities and marshals
// as a decimal string so downstream JSON consumers never lose precision.
type U256 struct {
	*uint256.Int
}

func NewU256() U256 {
	return U256{uint256.NewInt(0)}
}

func U256FromBig(s string) (U256, error) {
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return U256{}, fmt.Errorf("model: parse u256 %q: %w", s, err)
	}
	return U256{i}, nil
}

func U256FromHex(s string) (U256, error) {
	s = strings.TrimLeft(strings.TrimPrefix(s, "0x"), "0")
	if s == "" {
		s = "0"
	}
	i, err := uint256.FromHex("0x" + s)
	if err != nil {
		return U256{}, fmt.Errorf("model: parse u256 hex %q: %w", s, err)
	}
	return U256{i}, nil
}

func (u U256) MarshalJSON() ([]byte, error) {
	if u.Int == nil {
		return json.Marshal("0")
	}
	return json.Marshal(u.Int.Dec())
}

func (u *U256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := U256FromBig(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}
