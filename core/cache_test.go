package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetOrLoad(t *testing.T) {
	cache := NewCache()

	var loads int32
	load := func() (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return "yebo", nil
	}

	val, err := cache.GetOrLoad("k", time.Minute, load)
	assert.NoError(t, err)
	assert.Equal(t, "yebo", val)

	// second read is served from cache
	val, err = cache.GetOrLoad("k", time.Minute, load)
	assert.NoError(t, err)
	assert.Equal(t, "yebo", val)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCache_GetOrLoad_expiry(t *testing.T) {
	cache := NewCache()
	defer func() { cacheNowFunc = time.Now }()

	now := time.Now()
	cacheNowFunc = func() time.Time { return now }

	var loads int32
	load := func() (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return atomic.LoadInt32(&loads), nil
	}

	_, _ = cache.GetOrLoad("k", 5*time.Minute, load)

	// move past the TTL; a fresh load must run
	cacheNowFunc = func() time.Time { return now.Add(5*time.Minute + time.Second) }
	val, err := cache.GetOrLoad("k", 5*time.Minute, load)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), val)
}

func TestCache_GetOrLoad_singleFlight(t *testing.T) {
	cache := NewCache()

	var loads int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func() (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		close(started)
		<-release
		return "done", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			val, err := cache.GetOrLoad("k", time.Minute, load)
			assert.NoError(t, err)
			results[i] = val
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for _, val := range results {
		assert.Equal(t, "done", val)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache()

	var loads int32
	load := func() (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return "v", nil
	}

	_, _ = cache.GetOrLoad("a", time.Minute, load)
	_, _ = cache.GetOrLoad("b", time.Minute, load)
	cache.Invalidate("a")

	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("b")
	assert.True(t, ok)

	_, _ = cache.GetOrLoad("a", time.Minute, load)
	assert.Equal(t, int32(3), atomic.LoadInt32(&loads))
}

func TestCache_Invalidate_duringLoad(t *testing.T) {
	cache := NewCache()

	started := make(chan struct{})
	release := make(chan struct{})
	slowLoad := func() (interface{}, error) {
		close(started)
		<-release
		return "stale", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, err := cache.GetOrLoad("k", time.Minute, slowLoad)
		assert.NoError(t, err)
		assert.Equal(t, "stale", got) // waiters still get the load's result
	}()

	// the mutation lands while the load is in flight
	<-started
	cache.Invalidate("k")
	close(release)
	wg.Wait()

	// the overtaken result must not have been cached
	_, ok := cache.Get("k")
	assert.False(t, ok)

	got, err := cache.GetOrLoad("k", time.Minute, func() (interface{}, error) { return "fresh", nil })
	assert.NoError(t, err)
	assert.Equal(t, "fresh", got)
}
