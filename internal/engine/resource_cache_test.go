package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContext struct {
	key       string
	destroyed atomic.Int32
	advanced  atomic.Int32
}

func (f *fakeContext) Destroy()                 { f.destroyed.Add(1) }
func (f *fakeContext) Advance(dt time.Duration) { f.advanced.Add(1) }

type fakeChild struct {
	destroyed atomic.Int32
}

func (f *fakeChild) Destroy() { f.destroyed.Add(1) }

func newTestCache(loads *atomic.Int32, contexts *sync.Map) *ResourceCache {
	loader := func(ctx context.Context, key string) (RenderContext, []Destroyable, error) {
		if loads != nil {
			loads.Add(1)
		}
		fc := &fakeContext{key: key}
		if contexts != nil {
			contexts.Store(key, fc)
		}
		return fc, nil, nil
	}
	return NewResourceCache(loader, 10*time.Millisecond)
}

func TestAcquireCreatesOnce(t *testing.T) {
	var loads atomic.Int32
	cache := newTestCache(&loads, nil)

	h1, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)
	h2, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 2, cache.RefCount("scene-a"))

	cache.Release(h1)
	cache.Release(h2)
}

func TestConcurrentAcquireSharesOneLoad(t *testing.T) {
	var loads atomic.Int32
	cache := newTestCache(&loads, nil)

	const n = 32
	handles := make([]*ResourceHandle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, n, cache.RefCount("scene-a"))

	for _, h := range handles {
		cache.Release(h)
	}
	assert.Equal(t, 0, cache.RefCount("scene-a"))
}

func TestReleaseIsIdempotentPerHandle(t *testing.T) {
	cache := newTestCache(nil, nil)

	h1, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)
	h2, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)

	cache.Release(h1)
	cache.Release(h1)
	cache.Release(h1)

	assert.Equal(t, 1, cache.RefCount("scene-a"), "double release must not steal the other holder's reference")
	cache.Release(h2)
	assert.Equal(t, 0, cache.RefCount("scene-a"))
}

func TestLastReleaseDestroysContextAndChildren(t *testing.T) {
	fc := &fakeContext{}
	child := &fakeChild{}
	loader := func(ctx context.Context, key string) (RenderContext, []Destroyable, error) {
		return fc, []Destroyable{child}, nil
	}
	cache := NewResourceCache(loader, 10*time.Millisecond)

	h, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)
	cache.Release(h)

	assert.Eventually(t, func() bool {
		return fc.destroyed.Load() == 1 && child.destroyed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// A re-acquire after release gets a fresh entry, never the torn-down one.
	h2, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.RefCount("scene-a"))
	cache.Release(h2)

	assert.Eventually(t, func() bool { return fc.destroyed.Load() == 1 }, time.Second, 5*time.Millisecond,
		"teardown must run exactly once per entry")
}

func TestPersistentEntrySurvivesRelease(t *testing.T) {
	fc := &fakeContext{}
	loader := func(ctx context.Context, key string) (RenderContext, []Destroyable, error) {
		return fc, nil, nil
	}
	cache := NewResourceCache(loader, 10*time.Millisecond)

	h, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{Persist: true})
	require.NoError(t, err)
	cache.Release(h)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fc.destroyed.Load(), "persistent entry must outlive its holders")

	cache.Purge("scene-a")
	assert.Eventually(t, func() bool { return fc.destroyed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoaderFailureYieldsDegradedHandle(t *testing.T) {
	loader := func(ctx context.Context, key string) (RenderContext, []Destroyable, error) {
		return nil, nil, errors.New("missing asset bundle")
	}
	cache := NewResourceCache(loader, 10*time.Millisecond)

	h, err := cache.Acquire(context.Background(), "scene-broken", AcquireOptions{})
	require.NoError(t, err, "a failed load degrades, it does not error")
	assert.True(t, h.Degraded)
	assert.Equal(t, 1, cache.RefCount("scene-broken"))

	cache.Release(h)
	assert.Equal(t, 0, cache.RefCount("scene-broken"))
}

func TestSharedClockAdvancesLiveContexts(t *testing.T) {
	var contexts sync.Map
	cache := newTestCache(nil, &contexts)

	h1, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)
	h2, err := cache.Acquire(context.Background(), "scene-b", AcquireOptions{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		a, okA := contexts.Load("scene-a")
		b, okB := contexts.Load("scene-b")
		return okA && okB &&
			a.(*fakeContext).advanced.Load() > 0 &&
			b.(*fakeContext).advanced.Load() > 0
	}, time.Second, 5*time.Millisecond)

	cache.Release(h1)
	cache.Release(h2)

	// With the registry empty the clock stops; advance counts settle.
	time.Sleep(30 * time.Millisecond)
	a, _ := contexts.Load("scene-a")
	settled := a.(*fakeContext).advanced.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, a.(*fakeContext).advanced.Load())
}

func TestAttachDetachNeverDestroy(t *testing.T) {
	fc := &fakeContext{}
	loader := func(ctx context.Context, key string) (RenderContext, []Destroyable, error) {
		return fc, nil, nil
	}
	cache := NewResourceCache(loader, 10*time.Millisecond)

	h, err := cache.Acquire(context.Background(), "scene-a", AcquireOptions{})
	require.NoError(t, err)

	cache.Attach(h, "page-3")
	cache.Detach(h, "page-3")
	cache.Attach(h, "page-4")
	cache.Detach(h, "page-4")

	assert.Equal(t, int32(0), fc.destroyed.Load())
	assert.Equal(t, 1, cache.RefCount("scene-a"))
	cache.Release(h)
}
