package core

import (
	"testing"
	"time"
)

func newTestCache(ttl time.Duration, maxSize int) *InMemoryCache {
	return NewInMemoryCache(CacheConfig{TTL: ttl, MaxSize: maxSize})
}

func TestInMemoryCacheGetSetShouldStoreAndRetrieve(t *testing.T) {
	cache := newTestCache(5*time.Minute, 500)

	session := &Session{
		ID:        "session123",
		UserID:    "user456",
		TokenHash: "hash789",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := cache.Set("hash789", session); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := cache.Get("hash789")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != session.ID {
		t.Errorf("Expected ID %s, got %s", session.ID, retrieved.ID)
	}
	if retrieved.UserID != session.UserID {
		t.Errorf("Expected UserID %s, got %s", session.UserID, retrieved.UserID)
	}
}

func TestInMemoryCacheGetNonExistentShouldReturnErrCacheNotFound(t *testing.T) {
	cache := newTestCache(5*time.Minute, 500)

	_, err := cache.Get("nonexistent")
	if err != ErrCacheNotFound {
		t.Errorf("Expected ErrCacheNotFound, got %v", err)
	}
}

func TestInMemoryCacheExpiryShouldExpireEntriesAfterTTL(t *testing.T) {
	cache := newTestCache(100*time.Millisecond, 500)

	session := &Session{
		ID:        "session123",
		TokenHash: "hash789",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	cache.Set("hash789", session)

	if _, err := cache.Get("hash789"); err != nil {
		t.Error("Session should exist immediately after Set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := cache.Get("hash789"); err != ErrCacheNotFound {
		t.Error("Session should be expired and removed from cache")
	}
	if cache.Len() != 0 {
		t.Errorf("Cache should be empty after expired entry removed, got size %d", cache.Len())
	}
}

func TestInMemoryCacheDeleteShouldRemoveEntry(t *testing.T) {
	cache := newTestCache(5*time.Minute, 500)

	session := &Session{ID: "session123", TokenHash: "hash789", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	cache.Set("hash789", session)

	if err := cache.Delete("hash789"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get("hash789"); err != ErrCacheNotFound {
		t.Error("Session should be deleted")
	}

	// Deleting a missing key is not an error
	if err := cache.Delete("nonexistent"); err != nil {
		t.Errorf("Delete of non-existent key should not error, got %v", err)
	}
}

func TestInMemoryCacheClearShouldRemoveAllEntries(t *testing.T) {
	cache := newTestCache(5*time.Minute, 500)

	cache.Set("hash1", &Session{ID: "session1", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	cache.Set("hash2", &Session{ID: "session2", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	cache.Set("hash3", &Session{ID: "session3", CreatedAt: time.Now(), UpdatedAt: time.Now()})

	if cache.Len() != 3 {
		t.Errorf("Expected 3 sessions in cache, got %d", cache.Len())
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Cache should be empty after Clear, got size %d", cache.Len())
	}
}

func TestInMemoryCacheMaxLenShouldEvictWhenOverCapacity(t *testing.T) {
	cache := newTestCache(5*time.Minute, 2)

	cache.Set("hash1", &Session{ID: "session1", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	cache.Set("hash2", &Session{ID: "session2", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	cache.Set("hash3", &Session{ID: "session3", CreatedAt: time.Now(), UpdatedAt: time.Now()})

	if cache.Len() != 2 {
		t.Errorf("Expected size 2 after eviction, got %d", cache.Len())
	}

	count := 0
	for _, key := range []string{"hash1", "hash2", "hash3"} {
		if _, err := cache.Get(key); err == nil {
			count++
		}
	}
	if count != 2 {
		t.Errorf("Expected exactly 2 sessions in cache, found %d", count)
	}
}

func TestInMemoryCacheConcurrentReadWriteShouldNotRaceOrPanic(t *testing.T) {
	cache := newTestCache(5*time.Minute, 500)
	done := make(chan bool, 200)

	session := &Session{ID: "session123", TokenHash: "hash789", CreatedAt: time.Now(), UpdatedAt: time.Now()}

	for i := 0; i < 100; i++ {
		go func(id int) {
			cache.Set("hash"+string(rune(id)), session)
			done <- true
		}(i)
	}
	for i := 0; i < 100; i++ {
		go func() {
			cache.Get("hash789")
			done <- true
		}()
	}
	for i := 0; i < 200; i++ {
		<-done
	}
}
