package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 1.5, time.Minute)
	if v, ok := c.GetFloat("k"); !ok || v != 1.5 {
		t.Fatalf("GetFloat = %v, %v", v, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero-ttl entry should persist")
	}
}

func TestGetFloatTypeMismatch(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "not a float", time.Minute)
	if _, ok := c.GetFloat("k"); ok {
		t.Fatal("expected type mismatch to miss")
	}
}
