package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/recipebox/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value interface{}
		want  interface{}
	}{
		{
			name:  "string",
			key:   "k1",
			value: "value",
			want:  "value",
		},
		{
			name:  "suggestion list reads back as generic slice",
			key:   "autocomplete:flo",
			value: []string{"Flour", "Flounder"},
			want:  []interface{}{"Flour", "Flounder"},
		},
		{
			name:  "empty list",
			key:   "autocomplete:zzz",
			value: []string{},
			want:  []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, time.Minute); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			gotList, isList := got.([]interface{})
			wantList, wantIsList := tt.want.([]interface{})
			if isList != wantIsList {
				t.Fatalf("Get() = %#v, want %#v", got, tt.want)
			}
			if isList {
				if len(gotList) != len(wantList) {
					t.Fatalf("Get() = %#v, want %#v", got, tt.want)
				}
				for i := range gotList {
					if gotList[i] != wantList[i] {
						t.Errorf("Get()[%d] = %v, want %v", i, gotList[i], wantList[i])
					}
				}
				return
			}
			if got != tt.want {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "short", "value", time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want %v", err, domain.ErrCacheMiss)
	}
	exists, err := cache.Exists(ctx, "short")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v, want false, nil", exists, err)
	}

	// expired entries linger until swept
	if size := cache.Size(); size != 1 {
		t.Errorf("Size() before sweep = %d, want 1", size)
	}
	cache.sweep(time.Now())
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() after sweep = %d, want 0", size)
	}
}

func TestMemoryCache_BackgroundSweep(t *testing.T) {
	cache := NewMemoryCacheWithInterval(5 * time.Millisecond)
	defer cache.Close()

	if err := cache.Set(context.Background(), "k", 1, time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for cache.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was never swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	_, err := cache.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, key, key, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, "a"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want cache miss", err)
	}
	if size := cache.Size(); size != 2 {
		t.Errorf("Size() = %d, want 2", size)
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() after clear = %d, want 0", size)
	}
}

func TestMemoryCache_SetUnencodable(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	if err := cache.Set(context.Background(), "bad", make(chan int), time.Minute); err == nil {
		t.Error("Set() with a channel value should fail")
	}
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	cache := NewMemoryCache()
	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, []string{key}, time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
