package api

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// 文档注释：进程内 LRU 响应缓存
// 背景：未启用 Redis 时替代 RedisCache，热点扇区参数在短周期内重复请求。
// 约束：容量满时淘汰最久未用项；过期项在读取时删除。
type LRU struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type kv struct {
	k   string
	v   string
	exp time.Time
}

func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{cap: capacity, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(_ context.Context, k string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, nil
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return "", nil
}

func (c *LRU) Set(_ context.Context, k, v string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := kv{k: k, v: v, exp: c.now().Add(ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = item
		c.lst.MoveToFront(e)
		return nil
	}
	c.dict[k] = c.lst.PushFront(item)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(kv).k)
		c.lst.Remove(back)
	}
	return nil
}

// Len：当前条目数
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
