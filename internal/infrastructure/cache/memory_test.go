package cache

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/labassist/backend/internal/domain"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	cache := NewMemoryCache(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   []byte
		ttl     time.Duration
		wantHit bool
	}{
		{
			name:    "store and retrieve session json",
			key:     "session:u1",
			value:   []byte(`{"requesterId":"u1","matchedNames":["ферритин"]}`),
			ttl:     time.Minute,
			wantHit: true,
		},
		{
			name:    "zero ttl never expires",
			key:     "session:u2",
			value:   []byte(`{}`),
			ttl:     0,
			wantHit: true,
		},
		{
			name:    "short ttl expires",
			key:     "session:u3",
			value:   []byte(`{}`),
			ttl:     time.Millisecond,
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if !tt.wantHit {
				time.Sleep(10 * time.Millisecond)
			}

			got, err := cache.Get(ctx, tt.key)
			if !tt.wantHit {
				if err != domain.ErrCacheMiss {
					t.Errorf("Get() error = %v, want ErrCacheMiss after expiration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("Get() = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	value := []byte("abc")
	_ = cache.Set(ctx, "k", value, time.Minute)
	value[0] = 'x'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed through caller slice: %s", got)
	}
	got[1] = 'x'

	again, _ := cache.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed through returned slice: %s", again)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Get(context.Background(), "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}

	// deleting a missing key is fine
	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "exists-test")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil", exists, err)
	}

	_ = cache.Set(ctx, "exists-test", []byte("v"), time.Minute)
	exists, err = cache.Exists(ctx, "exists-test")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil", exists, err)
	}

	_ = cache.Set(ctx, "short-ttl", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	exists, _ = cache.Exists(ctx, "short-ttl")
	if exists {
		t.Errorf("Exists() = true, want false after expiration")
	}
}

func TestMemoryCache_Keys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "escalation:u2", []byte("{}"), time.Minute)
	_ = cache.Set(ctx, "escalation:u1", []byte("{}"), time.Minute)
	_ = cache.Set(ctx, "session:u1", []byte("{}"), time.Minute)
	_ = cache.Set(ctx, "escalation:old", []byte("{}"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	keys, err := cache.Keys(ctx, "escalation:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	want := []string{"escalation:u1", "escalation:u2"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

func TestMemoryCache_Cleanup(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), time.Millisecond)
	_ = cache.Set(ctx, "b", []byte("2"), time.Minute)
	time.Sleep(10 * time.Millisecond)

	cache.removeExpired()
	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1 after sweep", size)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, []byte{byte(i)}, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5 before clear", size)
	}

	cache.Clear()

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache(time.Millisecond)
	if err := cache.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, []byte{byte(id)}, time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
			if _, err := cache.Keys(ctx, ""); err != nil {
				t.Errorf("Concurrent Keys() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
