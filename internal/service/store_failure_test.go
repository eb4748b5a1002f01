package service

import (
	"testing"

	"go-inventory-pos/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSurfacesStoreFailureOnProductLookup(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")
	f.failQueriesOn(t, "products")

	_, err := f.docs.Post(f.ctx, f.saleRequest(1))

	require.Error(t, err)
	assert.Equal(t, apperror.KindStoreUnavailable, apperror.KindOf(err))
	assert.NotContains(t, err.Error(), "not found")
	assert.NotContains(t, err.Error(), "10.0.0.5")
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
}

func TestSessionDetailSurfacesStoreFailure(t *testing.T) {
	f := newFixture(t)
	open := f.open(t, f.seller, "0")
	f.failQueriesOn(t, "cash_movements")

	_, err := f.cash.SessionDetail(f.ctx, open.ID)

	require.Error(t, err)
	assert.Equal(t, apperror.KindStoreUnavailable, apperror.KindOf(err))
}
