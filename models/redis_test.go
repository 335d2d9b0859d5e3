package models_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/mmdatafocus/dyeing_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// setupTestRedis points the cache, counters and locks at an in-process redis.
func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.SetRedisDB(client)
	t.Cleanup(func() {
		config.SetRedisDB(nil)
		_ = client.Close()
	})
	return mr
}

func TestMachineCacheAndLockWithRedis(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	ctx := testContext()
	machine := seedMachine(t, ctx, "Jet 11")
	cacheKey := "Machine:" + strconv.Itoa(machine.ID)
	lockKey := "machine:" + strconv.Itoa(machine.ID)

	got, err := models.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	require.Equal(t, models.MachineStatusAvailable, got.Status)
	require.True(t, mr.Exists(cacheKey))

	_, err = models.SetMachineMaintenance(ctx, machine.ID, true)
	require.NoError(t, err)
	require.False(t, mr.Exists(lockKey))
	require.False(t, mr.Exists(cacheKey))

	got, err = models.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	require.Equal(t, models.MachineStatusUnderMaintenance, got.Status)

	_, err = models.SetMachineMaintenance(ctx, machine.ID, false)
	require.NoError(t, err)
	seedProcess(t, ctx, machine.ID)
	require.False(t, mr.Exists(lockKey))

	got, err = models.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	require.Equal(t, models.MachineStatusBusy, got.Status)
}

func TestHeldMachineLockFailsAllocation(t *testing.T) {
	db := setupTestDB(t)
	mr := setupTestRedis(t)
	ctx := testContext()
	machine := seedMachine(t, ctx, "Jet 12")
	detail := seedProductDetail(t, ctx)

	// another instance is allocating this machine
	require.NoError(t, mr.Set("machine:"+strconv.Itoa(machine.ID), "other-instance"))

	timeoutCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err := models.CreateDyeingProcess(timeoutCtx, &models.NewDyeingProcess{
		ProductDetailId: detail.ID,
		MachineId:       machine.ID,
		GreyWeight:      dec("100"),
	})
	require.Error(t, err)
	require.True(t, utils.IsTransactionFailure(err))
	require.Equal(t, models.MachineStatusAvailable, reloadMachine(t, db, machine.ID).Status)
}

func TestInvoiceSequenceWithRedis(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	ctx := testContext()

	first := seedInvoice(t, ctx, "100")
	second := seedInvoice(t, ctx, "200")
	require.EqualValues(t, 1, first.SequenceNo)
	require.EqualValues(t, 2, second.SequenceNo)
	require.Equal(t, "INV-000002", second.InvoiceNo)

	counter, err := mr.Get("invoice_seq")
	require.NoError(t, err)
	require.Equal(t, "2", counter)
}
