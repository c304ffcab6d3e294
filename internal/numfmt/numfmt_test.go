package numfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBR(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"  ":        0,
		"12":        12,
		"12,5":      12.5,
		"1.234,56":  1234.56,
		"1.000.000": 1000000,
		"abc":       0,
		"Inf":       0,
		" 89,90 ":   89.9,
	}
	for in, want := range cases {
		assert.InDelta(t, want, ParseBR(in), 1e-9, "input %q", in)
	}
}

func TestRoundingHalfUp(t *testing.T) {
	assert.Equal(t, 161.82, Round2(89.90*2*0.9))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 2.0, Round2(1.999))
	assert.Equal(t, 1.063, Round3(1.0625))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, 0.0, Round3(math.Inf(1)))
}

func TestHalfCentProducts(t *testing.T) {
	// 0.35 x 3.5 = 1.2250 and 0.29 x 3.5 = 1.0150 exactly; float products land just below.
	assert.Equal(t, 1.23, Mul2(0.35, 3.5))
	assert.Equal(t, 1.02, Mul2(0.29, 3.5))
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 1.23, LineTotal(0.35, 3.5, 0))
	assert.Equal(t, 161.82, LineTotal(89.9, 2, 10))
	assert.Equal(t, 161.82, ApplyPct(179.8, 10))
	assert.Equal(t, 0.0, ApplyPct(50, 100))
}

func TestDecimalHelpers(t *testing.T) {
	assert.Equal(t, 0.3, Sum2(0.1, 0.2))
	assert.Equal(t, 0.0, Sum2())
	assert.Equal(t, 1.3, Add3(1.1, 0.2))
	assert.Equal(t, 3.33, Div2(10, 3))
	assert.Equal(t, 0.0, Div2(10, 0))
	assert.Equal(t, 10.0, PctOff(161.82, 179.8))
	assert.Equal(t, 0.0, PctOff(5, 0))
	assert.Equal(t, 0.0, Mul2(math.NaN(), 2))
}

func TestClampPct(t *testing.T) {
	assert.Equal(t, 0.0, ClampPct(-3))
	assert.Equal(t, 100.0, ClampPct(130))
	assert.Equal(t, 16.67, ClampPct(16.67))
	assert.Equal(t, 0.0, ClampPct(math.NaN()))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "161,82", FormatMoney(161.82))
	assert.Equal(t, "0,00", FormatMoney(math.NaN()))
	assert.Equal(t, "1234,50", FormatMoney(1234.5))

	assert.Equal(t, "10", FormatPct(10))
	assert.Equal(t, "16,67", FormatPct(16.666666))
	assert.Equal(t, "0", FormatPct(math.Inf(-1)))

	assert.Equal(t, "5", FormatQty(5))
	assert.Equal(t, "1,5", FormatQty(1.5))
	assert.Equal(t, "0,125", FormatQty(0.125))
	assert.Equal(t, "0,001", FormatQty(0.001))
}
