package cache

import (
	"context"
	"testing"
	"time"

	"github.com/daymate/daymate/internal/models"
)

func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	data := models.TrafficData{Message: "ok", DataSource: "test"}
	if err := c.Set(ctx, "London__", data, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, "London__")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Message != "ok" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestInMemoryCache_Miss(t *testing.T) {
	c := NewInMemoryCache()
	_, ok, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", models.TrafficData{}, 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}
