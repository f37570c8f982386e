package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/diewo77/devinvoice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupSequenceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.NumberSequenceBucket{}))
	return db
}

func TestGormStore_InsertAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(setupSequenceDB(t))
	key := BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}

	_, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	has, err := store.OwnerHasBuckets(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	ok, err := store.Insert(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Insert(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok, "second insert must lose")

	ok, err = store.CompareAndSwap(ctx, key, 5, 6)
	require.NoError(t, err)
	assert.False(t, ok, "stale expectation")

	ok, err = store.CompareAndSwap(ctx, key, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	last, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), last)

	has, err = store.OwnerHasBuckets(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGormStore_ConcurrentAllocation(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(NewGormStore(setupSequenceDB(t)), WithClock(fixedClock(2024)))

	for _, want := range []string{"INV-2024-001", "INV-2024-002"} {
		n, err := a.Allocate(ctx, "u1", "INV")
		require.NoError(t, err)
		assert.Equal(t, want, n.String())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var got []string
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.Allocate(ctx, "u1", "INV")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			got = append(got, n.String())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Strings(got)
	require.Len(t, got, 10)
	assert.Equal(t, "INV-2024-003", got[0])
	assert.Equal(t, "INV-2024-012", got[9])
}
