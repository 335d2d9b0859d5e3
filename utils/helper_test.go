package utils

import (
	"context"
	"testing"

	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestResourceLockWithoutRedis(t *testing.T) {
	config.SetRedisDB(nil)
	unlock, err := ResourceLock(context.Background(), "machine:1", "utils", "TestResourceLockWithoutRedis")
	require.NoError(t, err)
	require.NotNil(t, unlock)
	unlock()
}

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, UniqueSlice([]int{3, 1, 3, 2, 1}))
	assert.Nil(t, UniqueSlice([]int{}))
}

func TestContextHelpers(t *testing.T) {
	ctx := SetCorrelationIdInContext(context.Background(), "cid-1")
	ctx = SetUserIdInContext(ctx, 7)
	ctx = SetReconcilerInContext(ctx, config.ReconcilerLedger)

	cid, ok := GetCorrelationIdFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "cid-1", cid)
	id, ok := GetUserIdFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, id)
	owner, _ := GetReconcilerFromContext(ctx)
	assert.Equal(t, config.ReconcilerLedger, owner)
	_, ok = GetUserNameFromContext(ctx)
	assert.False(t, ok)
}
