package cart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tebaspos/backend/internal/domain"
)

func product(id string, price float64) domain.Product {
	code := len(id)
	return domain.Product{ID: id, StoreID: "store-1", Code: &code, Description: "item " + id, Price: price}
}

func TestLineTotalAppliesDiscountAfterBase(t *testing.T) {
	r := New()
	r.Add(product("a", 89.90), 2)
	require.NoError(t, r.SetDiscountPct(0, 10))

	line := r.Lines()[0]
	assert.Equal(t, 161.82, line.Total)
	assert.Equal(t, 161.82, r.Subtotal())
	assert.Equal(t, 161.82, r.Received())
	assert.Equal(t, Neutral, r.Tracking())
}

func TestHalfCentLineTotalsRoundUp(t *testing.T) {
	r := New()
	r.Add(product("a", 0.35), 3.5)
	r.Add(product("bb", 0.29), 3.5)

	lines := r.Lines()
	assert.Equal(t, 1.02, lines[0].Total)
	assert.Equal(t, 1.23, lines[1].Total)
	assert.Equal(t, 2.25, r.Subtotal())
	assert.Equal(t, 2.25, r.Received())

	require.NoError(t, r.SetLineTotal(1, 1.23))
	assert.Equal(t, 0.0, r.Lines()[1].DiscountPct)
}

func TestAddMergesSameProductAndKeepsDiscount(t *testing.T) {
	r := New()
	r.Add(product("a", 10), 1)
	require.NoError(t, r.SetDiscountPct(0, 50))
	r.Add(product("a", 10), 2)

	lines := r.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3.0, lines[0].Quantity)
	assert.Equal(t, 50.0, lines[0].DiscountPct)
	assert.Equal(t, 15.0, lines[0].Total)
}

func TestAddPrependsNewLines(t *testing.T) {
	r := New()
	r.Add(product("a", 1), 1)
	r.Add(product("bb", 2), 1)

	lines := r.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "bb", lines[0].Product.ID)
	assert.Equal(t, "a", lines[1].Product.ID)
}

func TestAddMergeRoundsQuantityToThreeDecimals(t *testing.T) {
	r := New()
	r.Add(product("a", 1), 0.1)
	r.Add(product("a", 1), 0.2)
	assert.Equal(t, 0.3, r.Lines()[0].Quantity)
}

func TestSetQuantityFloorsAtMinimum(t *testing.T) {
	r := New()
	r.Add(product("a", 100), 1)
	require.NoError(t, r.SetQuantity(0, -4))
	assert.Equal(t, 0.001, r.Lines()[0].Quantity)
	assert.Equal(t, 0.1, r.Lines()[0].Total)
}

func TestSetDiscountPctClampsAndIsIdempotent(t *testing.T) {
	r := New()
	r.Add(product("a", 20), 1)

	require.NoError(t, r.SetDiscountPct(0, 150))
	assert.Equal(t, 100.0, r.Lines()[0].DiscountPct)
	assert.Equal(t, 0.0, r.Lines()[0].Total)

	require.NoError(t, r.SetDiscountPct(0, 12.5))
	first := r.Lines()[0]
	require.NoError(t, r.SetDiscountPct(0, 12.5))
	assert.Equal(t, first, r.Lines()[0])
}

func TestSetLineTotalBackComputesDiscount(t *testing.T) {
	r := New()
	r.Add(product("a", 10), 1)
	require.NoError(t, r.SetLineTotal(0, 8))

	line := r.Lines()[0]
	assert.Equal(t, 20.0, line.DiscountPct)
	assert.Equal(t, 8.0, line.Total)
}

func TestSetLineTotalAboveBaseClampsDiscountToZero(t *testing.T) {
	r := New()
	r.Add(product("a", 10), 1)
	require.NoError(t, r.SetLineTotal(0, 12))

	line := r.Lines()[0]
	assert.Equal(t, 0.0, line.DiscountPct)
	assert.Equal(t, 12.0, line.Total)
}

func TestSetLineTotalWithZeroBaseKeepsTypedTotal(t *testing.T) {
	r := New()
	r.Add(product("free", 0), 1)
	require.NoError(t, r.SetLineTotal(0, 5))

	line := r.Lines()[0]
	assert.Equal(t, 0.0, line.DiscountPct)
	assert.Equal(t, 5.0, line.Total)
}

func TestDiscountAndTotalRoundTrip(t *testing.T) {
	r := New()
	r.Add(product("a", 50), 1)
	require.NoError(t, r.SetDiscountPct(0, 15))
	total := r.Lines()[0].Total
	assert.Equal(t, 42.5, total)

	require.NoError(t, r.SetLineTotal(0, total))
	assert.InDelta(t, 15.0, r.Lines()[0].DiscountPct, 0.01)
	assert.Equal(t, 42.5, r.Lines()[0].Total)
}

func TestLineEditsRejectOutOfRangeIndex(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.SetQuantity(0, 1), ErrLineRange)
	assert.ErrorIs(t, r.SetDiscountPct(-1, 1), ErrLineRange)
	assert.ErrorIs(t, r.SetLineTotal(3, 1), ErrLineRange)
	assert.ErrorIs(t, r.Remove(0), ErrLineRange)
}

func TestOverallDiscountAndReceived(t *testing.T) {
	r := New()
	r.Add(product("a", 100), 3)
	assert.Equal(t, 300.0, r.Subtotal())

	r.SetOverallDiscountPct(5)
	assert.Equal(t, 285.0, r.FinalTotal())
	assert.Equal(t, 285.0, r.Received())
	assert.Equal(t, TrackingDiscount, r.Tracking())

	r.SetReceived(250)
	assert.Equal(t, 16.67, r.OverallDiscountPct())
	assert.Equal(t, 250.0, r.Received())
	assert.Equal(t, TrackingReceived, r.Tracking())
}

func TestOverallDiscountTakesTrackingBackFromReceived(t *testing.T) {
	r := New()
	r.Add(product("a", 100), 2)
	r.SetReceived(150)
	require.Equal(t, TrackingReceived, r.Tracking())
	require.Equal(t, 25.0, r.OverallDiscountPct())

	r.SetOverallDiscountPct(10)
	assert.Equal(t, TrackingDiscount, r.Tracking())
	assert.Equal(t, 180.0, r.FinalTotal())
	assert.Equal(t, 180.0, r.Received())

	r.Add(product("bb", 50), 1)
	assert.Equal(t, 225.0, r.Received())

	r.Clear()
	assert.Equal(t, Neutral, r.Tracking())
}

func TestReceivedStopsTrackingOnceTyped(t *testing.T) {
	r := New()
	r.Add(product("a", 10), 1)
	assert.Equal(t, 10.0, r.Received())

	r.Add(product("bb", 5), 1)
	assert.Equal(t, 15.0, r.Received())

	r.SetReceived(20)
	r.Add(product("ccc", 7), 1)
	assert.Equal(t, 20.0, r.Received())
	assert.Equal(t, 22.0, r.Subtotal())

	require.NoError(t, r.Remove(0))
	assert.Equal(t, 20.0, r.Received())
}

func TestSetReceivedWithEmptyCartLeavesDiscountAtZero(t *testing.T) {
	r := New()
	r.SetReceived(40)
	assert.Equal(t, 0.0, r.OverallDiscountPct())
	assert.Equal(t, 40.0, r.Received())
}

func TestClearResetsEverything(t *testing.T) {
	r := New()
	r.Add(product("a", 10), 2)
	r.SetOverallDiscountPct(10)
	r.SetReceived(5)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0.0, r.Subtotal())
	assert.Equal(t, 0.0, r.OverallDiscountPct())
	assert.Equal(t, 0.0, r.Received())
	assert.Equal(t, Neutral, r.Tracking())

	r.Add(product("a", 10), 1)
	assert.Equal(t, 10.0, r.Received())
}

func TestValidateEmptyCart(t *testing.T) {
	err := New().Validate(StockSnapshot{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonEmpty, verr.Cart)
	assert.Equal(t, ReasonEmpty, err.Error())
}

func TestValidateUnresolvedLine(t *testing.T) {
	r := New()
	r.Add(domain.Product{Price: 3}, 1)

	var verr *ValidationError
	require.True(t, errors.As(r.Validate(StockSnapshot{}), &verr))
	require.Len(t, verr.Lines, 1)
	assert.Equal(t, ReasonNotFound, verr.Lines[0].Reason)
}

func TestValidateInsufficientStockKeepsCartIntact(t *testing.T) {
	r := New()
	r.Add(product("a", 2), 10)
	r.Add(product("bb", 2), 1)
	r.Add(product("ccc", 2), 4)

	_, err := r.Submission(StockSnapshot{"a": 7, "bb": 1}, Meta{StoreID: "store-1"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Lines, 2)
	assert.Equal(t, "ccc", verr.Lines[0].ProductID)
	assert.Equal(t, "a", verr.Lines[1].ProductID)
	assert.True(t, verr.HasReason(ReasonInsufficientStock))
	assert.Contains(t, err.Error(), "line 3: insufficient stock")

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 10.0, r.Lines()[2].Quantity)
}

func TestSubmissionBuildsDraft(t *testing.T) {
	r := New()
	r.Add(product("a", 89.90), 2)
	require.NoError(t, r.SetDiscountPct(0, 10))
	r.Add(product("bb", 3), 0.5)
	r.SetOverallDiscountPct(5)

	customer := "cust-1"
	draft, err := r.Submission(StockSnapshot{"a": 5, "bb": 5}, Meta{
		StoreID:       "store-1",
		UserID:        "caixa",
		PaymentMethod: domain.PaymentPix,
		CustomerID:    &customer,
	})
	require.NoError(t, err)

	assert.Equal(t, "store-1", draft.StoreID)
	assert.Equal(t, "caixa", draft.UserID)
	assert.Equal(t, domain.PaymentPix, draft.PaymentMethod)
	assert.Equal(t, &customer, draft.CustomerID)
	assert.Equal(t, 5.0, draft.OverallDiscountPct)
	assert.Nil(t, draft.CreatedAt)

	require.Len(t, draft.Items, 2)
	assert.Equal(t, domain.SaleItem{ProductID: "bb", Qty: 0.5, DiscountPct: 0, TotalFinal: 1.5}, draft.Items[0])
	assert.Equal(t, domain.SaleItem{ProductID: "a", Qty: 2, DiscountPct: 10, TotalFinal: 161.82}, draft.Items[1])

	assert.Equal(t, 163.32, r.Subtotal())
	assert.Equal(t, r.FinalTotal(), draft.ReceivedTotal)
	assert.Equal(t, 2, r.Len())
}
