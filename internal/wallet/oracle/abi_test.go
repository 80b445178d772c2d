package oracle

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/testutil"
)

func TestGetHashSelector(t *testing.T) {
	assert.Equal(t, "1da0b8fc", hex.EncodeToString(GetHashSelector()))
	assert.Equal(t, GetHashSignature, registryABI.Methods[getHashMethod].Sig)

	sel := GetHashSelector()
	sel[0] = 0xff
	assert.Equal(t, "1da0b8fc", hex.EncodeToString(GetHashSelector()), "callers get a copy")
}

func TestEncodeGetHashCall(t *testing.T) {
	addr, err := models.ParseAddress(testutil.TestWallets.Address1.String())
	require.NoError(t, err)

	data, err := EncodeGetHashCall(addr)
	require.NoError(t, err)

	encoded := hex.EncodeToString(data)
	assert.Len(t, data, 4+32)
	assert.True(t, strings.HasPrefix(encoded, "1da0b8fc"))
	assert.True(t, strings.HasSuffix(encoded, strings.TrimPrefix(addr.String(), "0x")))
	assert.Equal(t, strings.Repeat("0", 24), encoded[8:32], "address is left-padded to a full word")

	t.Run("decodes back to the same address", func(t *testing.T) {
		got, err := DecodeGetHashCall(data)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	})

	t.Run("rejects a non-address", func(t *testing.T) {
		_, err := EncodeGetHashCall(models.Address("0x1234"))
		assert.Error(t, err)
	})
}

func TestDecodeGetHashCall_RejectsOtherCalldata(t *testing.T) {
	transfer, err := hex.DecodeString("a9059cbb" + strings.Repeat("00", 64))
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":            nil,
		"short selector":   {0x1d, 0xa0},
		"other method":     transfer,
		"missing argument": GetHashSelector(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeGetHashCall(data)
			assert.Error(t, err)
		})
	}
}

func TestDecodeString(t *testing.T) {
	t.Run("round trips encoded strings", func(t *testing.T) {
		for _, s := range []string{
			"a",
			testutil.TestWallets.Fingerprint1,
			testutil.TestWallets.Fingerprint2,
			strings.Repeat("x", 32),
			strings.Repeat("y", 33),
		} {
			data, err := EncodeString(s)
			require.NoError(t, err)
			got, err := DecodeString(data)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		}
	})

	t.Run("empty results decode to the empty string", func(t *testing.T) {
		empty, err := EncodeString("")
		require.NoError(t, err)
		for _, in := range [][]byte{nil, {}, empty} {
			got, err := DecodeString(in)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
	})

	t.Run("rejects malformed data", func(t *testing.T) {
		word := func(n byte) []byte {
			w := make([]byte, 32)
			w[31] = n
			return w
		}
		cases := map[string][]byte{
			"not word aligned": {0x12, 0x34},
			"short":            word(32),
			"offset past end":  bytes.Join([][]byte{word(96), word(1)}, nil),
			"length past end":  bytes.Join([][]byte{word(32), word(40), []byte("abc"), make([]byte, 29)}, nil),
			"offset overflows": bytes.Join([][]byte{bytes.Repeat([]byte{0xff}, 32), word(0)}, nil),
		}
		for name, in := range cases {
			_, err := DecodeString(in)
			assert.Error(t, err, name)
		}
	})

	t.Run("rejects an oversized fingerprint", func(t *testing.T) {
		data, err := EncodeString(strings.Repeat("z", maxFingerprintBytes+1))
		require.NoError(t, err)
		_, err = DecodeString(data)
		assert.ErrorContains(t, err, "exceeds")
	})
}
