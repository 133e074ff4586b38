package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEther(t *testing.T) {
	cases := map[string]string{
		"0":                    "0",
		"1":                    "0.000000000000000001",
		"1000000000000000000":  "1",
		"30000000000000000":    "0.03",
		"1230000000000000000":  "1.23",
		"12345678900000000000": "12.3456789",
	}
	for in, want := range cases {
		v, _ := new(big.Int).SetString(in, 10)
		assert.Equal(t, want, FormatEther(v), in)
	}
}

func TestFormatUSDC(t *testing.T) {
	assert.Equal(t, "2.0", FormatUSDC(big.NewInt(2_000_000)))
	assert.Equal(t, "0.5", FormatUSDC(big.NewInt(500_000)))
	assert.Equal(t, "-1.25", FormatUSDC(big.NewInt(-1_250_000)))
	assert.Equal(t, "0.0", FormatUSDC(nil))
	assert.Equal(t, "0.000001", FormatUSDC(big.NewInt(1)))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("2000", USDCDecimals)
	require.NoError(t, err)
	assert.Equal(t, "2000000000", v.String())

	v, err = ParseUnits("1999.5", USDCDecimals)
	require.NoError(t, err)
	assert.Equal(t, "1999500000", v.String())

	_, err = ParseUnits("1.0000001", USDCDecimals)
	assert.Error(t, err)
	_, err = ParseUnits("abc", USDCDecimals)
	assert.Error(t, err)
}

func TestParseInteger(t *testing.T) {
	v, err := ParseInteger(" 1000 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Int64())

	for _, bad := range []string{"", "0", "-5", "1.5", "1e18"} {
		_, err := ParseInteger(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyBps(t *testing.T) {
	assert.Equal(t, int64(30), ApplyBps(big.NewInt(1000), 300).Int64())
	assert.Equal(t, int64(0), ApplyBps(big.NewInt(33), 300).Int64())
	assert.Equal(t, int64(990), ApplyBps(big.NewInt(1000), 9_900).Int64())
}
