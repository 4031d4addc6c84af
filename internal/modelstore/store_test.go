package modelstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	m := ModelRecord{
		ID:        uuid.NewString(),
		Name:      "latency-ms",
		Mean:      120,
		Stdev:     15,
		Terms:     100,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(ctx, m); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing id")
	}
	if got.Name != "latency-ms" || got.Mean != 120 || got.Stdev != 15 || got.Terms != 100 {
		t.Fatalf("Get mismatch: %+v", got)
	}

	ok, err := s.Delete(ctx, m.ID)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !ok {
		t.Fatal("Delete should report a deleted row")
	}

	got, err = s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("Get after delete should be nil, got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing id, got %+v", got)
	}
}

func TestListOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, name := range []string{"first", "second", "third"} {
		ts := base.Add(time.Duration(i) * time.Second)
		m := ModelRecord{
			ID:        uuid.NewString(),
			Name:      name,
			Mean:      float64(i),
			Stdev:     1,
			Terms:     100,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List len got=%d want=3", len(list))
	}
	// 创建时间倒序
	if list[0].Name != "third" || list[2].Name != "first" {
		t.Fatalf("List order wrong: %v, %v, %v", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := openTestStore(t)
	ok, err := s.Delete(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if ok {
		t.Fatal("Delete of missing id should report false")
	}
}
