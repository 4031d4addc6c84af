package tablecache

import (
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get("missing")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("fresh cache should miss")
	}
}

func TestSetGet(t *testing.T) {
	c := openTestCache(t)
	key := Key("model-1", 100, -3, 3, 0.5)
	val := []byte(`{"xs":[-3,-2.5],"ps":[0.00135,0.00621]}`)
	if err := c.Set(key, val); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != string(val) {
		t.Fatalf("Get got=%q want=%q", got, val)
	}
}

func TestInvalidateModel(t *testing.T) {
	c := openTestCache(t)
	if err := c.Set(Key("m1", 100, -1, 1, 0.5), []byte("a")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := c.Set(Key("m1", 200, -1, 1, 0.5), []byte("b")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := c.Set(Key("m2", 100, -1, 1, 0.5), []byte("c")); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := c.InvalidateModel("m1"); err != nil {
		t.Fatalf("InvalidateModel error: %v", err)
	}

	if _, ok, _ := c.Get(Key("m1", 100, -1, 1, 0.5)); ok {
		t.Fatal("m1 entry should be gone")
	}
	if _, ok, _ := c.Get(Key("m1", 200, -1, 1, 0.5)); ok {
		t.Fatal("m1 entry should be gone")
	}
	if _, ok, _ := c.Get(Key("m2", 100, -1, 1, 0.5)); !ok {
		t.Fatal("m2 entry should survive")
	}
}
