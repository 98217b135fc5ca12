package proxy

import (
	"testing"
	"time"
)

func TestProxyPool_RotationSkipsFailed(t *testing.T) {
	pool := NewProxyPool([]string{"http://p1", "http://p2", " ", "http://p3", "http://p1"})

	if pool.Len() != 3 {
		t.Fatalf("Expected 3 proxies after cleanup, got %d", pool.Len())
	}

	if p := pool.GetNext(); p != "http://p1" {
		t.Errorf("Expected p1, got %s", p)
	}

	pool.MarkFailed("http://p2")

	if p := pool.GetNext(); p != "http://p3" {
		t.Errorf("Expected p3 (skipping p2), got %s", p)
	}
	if p := pool.GetNext(); p != "http://p1" {
		t.Errorf("Expected p1, got %s", p)
	}

	pool.MarkHealthy("http://p2")
	if p := pool.GetNext(); p != "http://p2" {
		t.Errorf("Expected p2 after marking healthy, got %s", p)
	}
}

func TestProxyPool_CooldownExpires(t *testing.T) {
	now := time.Now()
	pool := NewProxyPool([]string{"a", "b"})
	pool.now = func() time.Time { return now }

	pool.MarkFailed("a")
	if p := pool.GetNext(); p != "b" {
		t.Errorf("Expected b while a cools down, got %s", p)
	}

	now = now.Add(DefaultCooldown)
	if p := pool.GetNext(); p != "a" {
		t.Errorf("Expected a after cooldown, got %s", p)
	}
}

func TestProxyPool_AllFailedStillReturnsOne(t *testing.T) {
	pool := NewProxyPool([]string{"a", "b"})
	pool.MarkFailed("a")
	pool.MarkFailed("b")

	if p := pool.GetNext(); p == "" {
		t.Error("Expected a proxy even when all are cooling down")
	}
}

func TestProxyPool_Empty(t *testing.T) {
	var pool *ProxyPool
	if p := pool.GetNext(); p != "" {
		t.Errorf("Expected empty proxy from nil pool, got %s", p)
	}
	if got := ParseList(""); got != nil {
		t.Errorf("Expected nil list, got %v", got)
	}
}
