package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)
	_ = c.Set(ctx, "a", "1", time.Hour)
	_ = c.Set(ctx, "b", "2", time.Hour)
	v, _ := c.Get(ctx, "a") // a 变为最近使用
	assert.Equal(t, "1", v)
	_ = c.Set(ctx, "c", "3", time.Hour)

	assert.Equal(t, 2, c.Len())
	v, _ = c.Get(ctx, "b")
	assert.Empty(t, v)
	v, _ = c.Get(ctx, "c")
	assert.Equal(t, "3", v)
}

func TestLRUExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewLRU(4)
	c.now = func() time.Time { return now }
	_ = c.Set(ctx, "k", "v", time.Minute)
	now = now.Add(2 * time.Minute)
	v, _ := c.Get(ctx, "k")
	assert.Empty(t, v)
	assert.Equal(t, 0, c.Len())
}
