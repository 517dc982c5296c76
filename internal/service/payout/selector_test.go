package payout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payout-core/internal/model"
)

func creatorIDs(cs []model.Creator) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestSelectorThreshold(t *testing.T) {
	db := newTestDB(t)
	seedCreator(t, db, "c_below", "499.99", model.FundAccountBank)
	seedCreator(t, db, "c_exact", "500", model.FundAccountBank)
	seedCreator(t, db, "c_above", "1200", model.FundAccountVPA)
	seedCreator(t, db, "c_zero", "0", model.FundAccountVPA)

	got, err := NewSelector(db, decimal.RequireFromString("500"), 0).Eligible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c_above", "c_exact"}, creatorIDs(got))
}

func TestSelectorZeroThresholdSkipsEmptyBalances(t *testing.T) {
	db := newTestDB(t)
	seedCreator(t, db, "c_zero", "0", model.FundAccountVPA)
	seedCreator(t, db, "c_some", "0.01", model.FundAccountVPA)

	got, err := NewSelector(db, decimal.Zero, 0).Eligible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c_some"}, creatorIDs(got))
}

func TestSelectorExcludesPendingReservation(t *testing.T) {
	db := newTestDB(t)
	pending := seedCreator(t, db, "c_pending", "800", model.FundAccountBank)
	resolved := seedCreator(t, db, "c_resolved", "900", model.FundAccountBank)

	w := NewWriter(db, nil)
	_, err := w.Reserve(context.Background(), &pending, decimal.RequireFromString("800"))
	require.NoError(t, err)

	res, err := w.Reserve(context.Background(), &resolved, decimal.RequireFromString("900"))
	require.NoError(t, err)
	require.NoError(t, w.Claim(context.Background(), res))
	require.NoError(t, w.Reconcile(context.Background(), res, Result{Status: model.PayoutRejected, GatewayStatus: "rejected"}))

	got, err := NewSelector(db, decimal.RequireFromString("500"), 0).Eligible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c_resolved"}, creatorIDs(got), "只有已 resolved 的创作者可以再次被选中")
}

func TestSelectorLimitAndEmpty(t *testing.T) {
	db := newTestDB(t)
	s := NewSelector(db, decimal.RequireFromString("500"), 2)

	got, err := s.Eligible(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	for _, id := range []string{"c3", "c1", "c2"} {
		seedCreator(t, db, id, "600", model.FundAccountBank)
	}
	got, err = s.Eligible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, creatorIDs(got))
}

func TestSelectorLedgerFailure(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewSelector(db, decimal.RequireFromString("500"), 0).Eligible(context.Background())
	var selErr *SelectionError
	assert.ErrorAs(t, err, &selErr)
}
