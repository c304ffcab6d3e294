package bulkentry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tebaspos/backend/internal/cart"
	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
)

func intPtr(v int) *int { return &v }

func testBatch() Batch {
	products := []domain.Product{
		{ID: "p-arroz", Code: intPtr(1), Description: "Arroz 5kg", Brand: "Tio João", Price: 27.5},
		{ID: "p-cafe", Code: intPtr(2), Description: "Café 500g", Brand: "Outros", Price: 18.9},
	}
	return Batch{
		Products:  catalog.NewIndex(products),
		Customers: []domain.Customer{{ID: "c-1", Name: "Maria Souza"}},
		Stock:     cart.StockSnapshot{"p-arroz": 3, "p-cafe": 10},
		Location:  time.UTC,
	}
}

func TestPrepareBuildsOneDraftPerRow(t *testing.T) {
	rows := []domain.BulkRow{
		{Date: "2025-03-10", Customer: "maria souza", Product: "1*", Qty: "2"},
		{Date: "2025-03-11", Product: "Café 500g • Outros (2*)", Qty: "1,5", Received: "25,00", ReceivedTouched: true},
		{Date: "2025-03-11"},
	}

	results, drafts, err := testBatch().Prepare("store-1", "caixa", rows)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, drafts, 2)

	first := drafts[0]
	assert.Equal(t, domain.PaymentCash, first.PaymentMethod)
	assert.Equal(t, "store-1", first.StoreID)
	require.NotNil(t, first.CustomerID)
	assert.Equal(t, "c-1", *first.CustomerID)
	assert.Equal(t, 55.0, first.ReceivedTotal)
	assert.Equal(t, domain.SaleItem{ProductID: "p-arroz", Qty: 2, TotalFinal: 55}, first.Items[0])
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), *first.CreatedAt)

	second := drafts[1]
	assert.Nil(t, second.CustomerID)
	assert.Equal(t, 28.35, second.Items[0].TotalFinal)
	assert.Equal(t, 25.0, second.ReceivedTotal)
	assert.Equal(t, 1, results[1].Index)
}

func TestPrepareReceivedFollowsTotalUntilTouched(t *testing.T) {
	rows := []domain.BulkRow{{Date: "2025-03-10", Product: "p-cafe", Qty: "2", Received: "1,00"}}
	results, drafts, err := testBatch().Prepare("store-1", "caixa", rows)
	require.NoError(t, err)
	assert.Equal(t, 37.8, results[0].Received)
	assert.Equal(t, 37.8, drafts[0].ReceivedTotal)
}

func TestPrepareRejectsWholeBatchAndMarksEveryRow(t *testing.T) {
	rows := []domain.BulkRow{
		{Date: "10/03/2025", Product: "1*", Qty: "1"},
		{Date: "2025-03-10", Product: "99*", Qty: "1"},
		{Date: "2025-03-10", Product: "2*", Qty: "1", Customer: "João"},
		{Date: "2025-03-10", Product: "2*", Qty: "1"},
	}

	results, drafts, err := testBatch().Prepare("store-1", "caixa", rows)
	require.True(t, errors.Is(err, ErrRejected))
	assert.Nil(t, drafts)
	require.Len(t, results, 4)
	assert.Equal(t, ReasonInvalidDate, results[0].Error)
	assert.Equal(t, ReasonNotFound, results[1].Error)
	assert.Equal(t, ReasonUnknownCustomer, results[2].Error)
	assert.Empty(t, results[3].Error)
}

func TestPrepareCoercesUnreadableQuantityToSmallestUnit(t *testing.T) {
	rows := []domain.BulkRow{
		{Date: "2025-03-10", Product: "2*", Qty: "abc"},
		{Date: "2025-03-10", Product: "2*", Qty: "0"},
		{Date: "2025-03-10", Product: "2*", Qty: "-4"},
		{Date: "2025-03-10", Product: "2*", Qty: ""},
	}

	results, drafts, err := testBatch().Prepare("store-1", "caixa", rows)
	require.NoError(t, err)
	require.Len(t, drafts, 4)
	for i := 0; i < 3; i++ {
		assert.Empty(t, results[i].Error)
		assert.Equal(t, 0.001, drafts[i].Items[0].Qty)
		assert.Equal(t, 0.02, results[i].Total)
	}
	assert.Equal(t, 1.0, drafts[3].Items[0].Qty)
	assert.Equal(t, 18.9, results[3].Total)
}

func TestRowTotalRoundsHalfCentUp(t *testing.T) {
	assert.Equal(t, 1.23, RowTotal(domain.Product{Price: 0.35}, 3.5))
	assert.Equal(t, 1.02, RowTotal(domain.Product{Price: 0.29}, 3.5))
	assert.Equal(t, 0.0, RowTotal(domain.Product{Price: 0}, 2))
}

func TestPrepareChecksStockCumulatively(t *testing.T) {
	rows := []domain.BulkRow{
		{Date: "2025-03-10", Product: "1*", Qty: "2"},
		{Date: "2025-03-11", Product: "1", Qty: "1"},
		{Date: "2025-03-12", Product: "1*", Qty: "1"},
	}

	b := testBatch()
	results, _, err := b.Prepare("store-1", "caixa", rows)
	require.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, ReasonInsufficientStock, results[2].Error)
	assert.Equal(t, 3.0, b.Stock["p-arroz"])
}

func TestPrepareEmptyBatch(t *testing.T) {
	_, _, err := testBatch().Prepare("store-1", "caixa", []domain.BulkRow{{Date: "2025-03-10"}})
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, "add at least one line", err.Error())
}
