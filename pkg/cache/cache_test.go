package cache

import (
	"testing"
	"time"
)

func TestInMemoryCacheSetGet(t *testing.T) {
	c := NewInMemoryCache[string, int](time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, time.Hour)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) got=(%v, %v) want=(1, true)", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) got=(%v, %v) want=(2, true)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should miss")
	}
	if c.Size() != 2 {
		t.Fatalf("Size got=%d want=2", c.Size())
	}
}

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache[string, int](time.Minute)
	c.Set("short", 7, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestInMemoryCacheDeleteClear(t *testing.T) {
	c := NewInMemoryCache[int, string](time.Minute)
	c.Set(1, "x", 0)
	c.Set(2, "y", 0)
	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatal("deleted entry should miss")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size after Clear got=%d want=0", c.Size())
	}
}

func TestEvalCache(t *testing.T) {
	ec := NewEvalCache(time.Minute)
	key := "model-1:cdf:1.5:100"
	if _, ok := ec.Get(key); ok {
		t.Fatal("fresh cache should miss")
	}
	ec.Set(key, 0.9332)
	if v, ok := ec.Get(key); !ok || v != 0.9332 {
		t.Fatalf("Get got=(%v, %v) want=(0.9332, true)", v, ok)
	}
}
