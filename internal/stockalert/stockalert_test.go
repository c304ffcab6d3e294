package stockalert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, LevelNone, Classify(5, nil).Level)
	assert.Equal(t, LabelNoThreshold, Classify(5, nil).Label)
	assert.Equal(t, LevelNone, Classify(5, intPtr(0)).Level)
	assert.Equal(t, LabelInvalidThreshold, Classify(5, intPtr(-2)).Label)

	assert.Equal(t, LevelRed, Classify(10, intPtr(10)).Level)
	assert.Equal(t, LevelOrange, Classify(12, intPtr(10)).Level)
	assert.Equal(t, LevelOrange, Classify(13, intPtr(10)).Level)
	assert.Equal(t, LevelGreen, Classify(14, intPtr(10)).Level)
	assert.Equal(t, "attention (<= 13)", Classify(12, intPtr(10)).Label)
}

func TestClassifyBoundaries(t *testing.T) {
	for min := 1; min <= 50; min++ {
		upper := UpperBound(min)
		assert.Equal(t, LevelRed, Classify(float64(min), intPtr(min)).Level, "min %d", min)
		assert.Equal(t, LevelOrange, Classify(float64(upper), intPtr(min)).Level, "min %d", min)
		assert.Equal(t, LevelGreen, Classify(float64(upper)+0.001, intPtr(min)).Level, "min %d", min)
	}
	assert.Equal(t, 2, UpperBound(1))
}

func TestClassifyCoercesNonFinite(t *testing.T) {
	assert.Equal(t, LevelRed, Classify(math.NaN(), intPtr(3)).Level)
	assert.Equal(t, LevelRed, Classify(math.Inf(1), intPtr(3)).Level)
	assert.Equal(t, LevelRed, Classify(-4, intPtr(3)).Level)
	assert.Equal(t, Classify(7, intPtr(6)), Classify(7, intPtr(6)))
}

func TestCountAndAlertsOrdering(t *testing.T) {
	items := []Item{
		{ProductID: "p-green", Code: intPtr(1), Quantity: 50, Minimum: intPtr(10)},
		{ProductID: "p-orange-5", Code: intPtr(5), Quantity: 11, Minimum: intPtr(10)},
		{ProductID: "p-red-nil", Code: nil, Quantity: 0, Minimum: intPtr(2)},
		{ProductID: "p-red-9", Code: intPtr(9), Quantity: 1, Minimum: intPtr(2)},
		{ProductID: "p-red-3", Code: intPtr(3), Quantity: 2, Minimum: intPtr(2)},
		{ProductID: "p-orange-nil", Code: nil, Quantity: 3, Minimum: intPtr(2)},
		{ProductID: "p-none", Code: intPtr(2), Quantity: 0, Minimum: nil},
	}

	counts := Count(items)
	assert.Equal(t, Counts{Red: 3, Orange: 2, Total: 5}, counts)

	alerts := Alerts(items, 0)
	require.Len(t, alerts, 5)
	got := make([]string, 0, len(alerts))
	for _, a := range alerts {
		got = append(got, a.ProductID)
	}
	assert.Equal(t, []string{"p-red-3", "p-red-9", "p-red-nil", "p-orange-5", "p-orange-nil"}, got)

	limited := Alerts(items, 2)
	assert.Len(t, limited, 2)
	assert.Equal(t, LevelRed, limited[1].Status.Level)
}
