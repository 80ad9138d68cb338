package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("extent-polygon"), 0); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(data) != "extent-polygon" {
		t.Errorf("Get = %q, %v, %v", data, ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("double Delete should be a no-op, got %v", err)
	}
}

func TestFileCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("null cache must never hit")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	opts := ExtentKeyOpts{
		SignalNets:    []string{"NET1"},
		ReferenceNets: []string{"GND"},
		ExtentType:    "ConvexHull",
		Expansion:     0.002,
		GeometryHash:  "abc",
	}

	a := k.ExtentKey("board", opts)
	b := k.ExtentKey("board", opts)
	if a != b {
		t.Error("equal inputs must produce equal keys")
	}
	if !strings.HasPrefix(a, "extent:") {
		t.Errorf("key prefix = %q", a)
	}

	opts.Expansion = 0.003
	if k.ExtentKey("board", opts) == a {
		t.Error("changed expansion must change the key")
	}
	opts.GeometryHash = "def"
	if k.ExtentKey("board", opts) == a {
		t.Error("changed geometry must change the key")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "proj:alpha:")

	opts := ExtentKeyOpts{SignalNets: []string{"NET1"}, GeometryHash: "abc"}
	key := scoped.ExtentKey("board", opts)
	if !strings.HasPrefix(key, "proj:alpha:") {
		t.Errorf("key = %q, want prefix", key)
	}
	if strings.TrimPrefix(key, "proj:alpha:") != inner.ExtentKey("board", opts) {
		t.Error("scoped key must wrap the inner key")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return ErrNotFound // not retryable
	})
	if err != ErrNotFound || calls != 1 {
		t.Errorf("non-retryable: err = %v, calls = %d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = RetryWithBackoff(ctx, func() error {
		return Retryable(ErrUnavailable)
	})
	if err != context.Canceled {
		t.Errorf("canceled context: err = %v", err)
	}
}
