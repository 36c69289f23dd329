package schengen

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("skipping redis test (requires REDIS_ADDR)")
	}
	rdb := OpenRedis(addr, os.Getenv("REDIS_PASS"), 0)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	cache := NewRedisCache(rdb, time.Minute)
	id := uuid.New()
	day := CivilDate{2025, time.March, 10}
	t.Cleanup(func() { _ = rdb.Del(ctx, cache.key(id), cache.genKey(id)).Err() })

	got, gen, err := cache.Get(ctx, id, day)
	if err != nil || got != nil {
		t.Fatalf("empty cache: got=%v err=%v", got, err)
	}

	want := ComplianceResult{DriverID: id, WindowDays: WindowDays, UsedDays: 4, RemainingDays: 86, Source: SourceMaterialized, DataAvailable: true}
	if err := cache.Put(ctx, want, day, gen); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _, err = cache.Get(ctx, id, day)
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.UsedDays != 4 || got.RemainingDays != 86 || got.DriverID != id {
		t.Errorf("cached = %+v", got)
	}
	if other, _, _ := cache.Get(ctx, id, day.AddDays(1)); other != nil {
		t.Error("other days must miss")
	}

	if err := cache.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, next, _ := cache.Get(ctx, id, day)
	if got != nil {
		t.Error("entry should be gone after Invalidate")
	}
	if next != gen+1 {
		t.Errorf("generation = %d, want %d", next, gen+1)
	}

	// A result computed under the old generation is dropped.
	if err := cache.Put(ctx, want, day, gen); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, _, _ := cache.Get(ctx, id, day); got != nil {
		t.Error("stale generation must not be stored")
	}
	if err := cache.Put(ctx, want, day, next); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, _, _ := cache.Get(ctx, id, day); got == nil {
		t.Error("current generation should be stored")
	}
}

func TestOpenRedis_EmptyAddr(t *testing.T) {
	if OpenRedis("", "", 0) != nil {
		t.Error("empty address should disable redis")
	}
}
