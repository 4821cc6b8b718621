package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexToAddress_RoundTrip(t *testing.T) {
	a := HexToAddress("0xabc0000000000000000000000000000000000a")
	require.Equal(t, "00abc0000000000000000000000000000000000a", a.Hex())
	require.False(t, a.IsZero())
	require.True(t, Address{}.IsZero())
}

func TestHexToAddress_TooShortIsRightAligned(t *testing.T) {
	a := HexToAddress("0x1")
	require.Equal(t, "0000000000000000000000000000000000000001", a.Hex())
}

func TestHexToHash_RoundTrip(t *testing.T) {
	h := HexToHash("0xaa")
	require.Equal(t, "00000000000000000000000000000000000000000000000000000000000000aa", h.Hex())
	require.False(t, h.IsZero())
}

func TestHexBytes_JSONRoundTrip(t *testing.T) {
	h := HexBytes{0xde, 0xad, 0xbe, 0xef}
	b, err := json.Marshal(h)
	require.NoError(t, err)
	require.Equal(t, `"deadbeef"`, string(b))

	var out HexBytes
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, h, out)
}

func TestU256FromBig_AndDecimalJSON(t *testing.T) {
	u, err := U256FromBig("123456789012345678901234567890")
	require.NoError(t, err)
	require.Equal(t, "123456789012345678901234567890", u.Dec())

	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.Equal(t, `"123456789012345678901234567890"`, string(b))
}

func TestU256FromHex(t *testing.T) {
	u, err := U256FromHex("0x64")
	require.NoError(t, err)
	require.Equal(t, "100", u.Dec())

	zero, err := U256FromHex("")
	require.NoError(t, err)
	require.Equal(t, "0", zero.Dec())

	_, err = U256FromHex("not-hex")
	require.Error(t, err)
}

func TestU256_JSONUnmarshal(t *testing.T) {
	var u U256
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &u))
	require.Equal(t, "42", u.Dec())
}

func TestU256_ZeroValueMarshalsAsZero(t *testing.T) {
	var u U256
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.Equal(t, `"0"`, string(b))
}
