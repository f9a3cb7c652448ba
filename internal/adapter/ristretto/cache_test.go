package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGetDelete(t *testing.T) {
	c, err := New(1<<20, 128)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "user:1", []byte(`{"id":1}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	val, ok, err := c.Get(ctx, "user:1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != `{"id":1}` {
		t.Fatalf("unexpected value %s", val)
	}

	if err := c.Delete(ctx, "user:1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "user:1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_Miss(t *testing.T) {
	c, err := New(1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok, err := c.Get(context.Background(), "absent"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
