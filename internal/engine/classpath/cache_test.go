// # internal/engine/classpath/cache_test.go
package classpath

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_ExpiryEvicts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewCache[string, int]("test", time.Minute, 0)
	c.SetClock(clock.Now)

	c.Put("app", 1)
	clock.Advance(59 * time.Second)
	if v, ok := c.Get("app"); !ok || v != 1 {
		t.Fatalf("expected hit before TTL, got %v %v", v, ok)
	}

	clock.Advance(time.Second)
	if v, ok := c.Get("app"); !ok || v != 1 {
		t.Fatalf("expected hit at exactly TTL, got %v %v", v, ok)
	}

	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("app"); ok {
		t.Fatal("expected miss past TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", c.Len())
	}
}

func TestCache_RealClockTTL(t *testing.T) {
	c := NewCache[string, int]("test", 20*time.Millisecond, 0)
	c.Put("app", 1)
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("app"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCache_NoExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewCache[string, int]("test", NoExpiry, 0)
	c.SetClock(clock.Now)

	c.Put("app", 1)
	clock.Advance(24 * 365 * time.Hour)
	if _, ok := c.Get("app"); !ok {
		t.Fatal("expected NoExpiry entry to survive")
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	if got := NewCache[string, int]("test", 0, 0).TTL(); got != DefaultTTL {
		t.Fatalf("expected default TTL, got %v", got)
	}
	if got := NewCache[string, int]("test", -5, 0).TTL(); got != DefaultTTL {
		t.Fatalf("expected negative TTL other than NoExpiry to fall back, got %v", got)
	}
}

func TestCache_PutRestartsWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewCache[string, int]("test", time.Minute, 0)
	c.SetClock(clock.Now)

	c.Put("app", 1)
	clock.Advance(50 * time.Second)
	c.Put("app", 2)
	clock.Advance(50 * time.Second)
	if v, ok := c.Get("app"); !ok || v != 2 {
		t.Fatalf("expected refreshed entry, got %v %v", v, ok)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache[string, int]("test", NoExpiry, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	c.Invalidate("a")
	c.Invalidate("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a invalidated")
	}
	if n := c.InvalidateFunc(func(k string) bool { return k == "b" }); n != 1 {
		t.Fatalf("expected one removal, got %d", n)
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestCache_CapacityEvictsLRU(t *testing.T) {
	c := NewCache[string, int]("test", NoExpiry, 2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache[string, int]("test", time.Minute, 64)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (id+j)%32)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("capacity exceeded: %d", c.Len())
	}
}
