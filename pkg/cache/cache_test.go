package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTL_GetSet(t *testing.T) {
	c := NewTTL[string](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", "value")

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)

	c.Set("key", "other")

	got, ok = c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "other", got)
}

func TestTTL_Expiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	c := NewTTL[int](time.Minute, WithClock[int](func() time.Time { return clock() }))

	c.Set("key", 42)

	_, ok := c.Get("key")
	assert.True(t, ok)

	now = now.Add(time.Minute + time.Second)

	_, ok = c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTL_Delete(t *testing.T) {
	c := NewTTL[int](time.Minute)

	c.Set("one", 1)
	c.Set("two", 2)

	c.Delete("one")

	_, ok := c.Get("one")
	assert.False(t, ok)
	_, ok = c.Get("two")
	assert.True(t, ok)
}

func TestTTL_DeleteFunc(t *testing.T) {
	c := NewTTL[int](time.Minute)

	c.Set("providers:acme", 1)
	c.Set("vendors:acme", 2)
	c.Set("vendors:other", 3)

	c.DeleteFunc(func(key string) bool {
		return key == "providers:acme" || key == "vendors:acme"
	})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("vendors:other")
	assert.True(t, ok)
}

func TestTTL_Clear(t *testing.T) {
	c := NewTTL[int](time.Minute)

	c.Set("one", 1)
	c.Set("two", 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("one")
	assert.False(t, ok)
}

func TestTTL_MaxEntries(t *testing.T) {
	c := NewTTL[int](time.Minute, WithMaxEntries[int](3))

	for i := 0; i < 10; i++ {
		c.Set(strconv.Itoa(i), i)
	}

	assert.Equal(t, 3, c.Len())
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := NewTTL[int](time.Minute, WithMaxEntries[int](64))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := strconv.Itoa(j % 50)
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.Delete(key)
				}
				if j%100 == 0 {
					c.DeleteFunc(func(k string) bool { return k == key })
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
