package cache

import (
	"errors"
	"sync"
	"testing"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) after eviction = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) after update = %d", v)
	}

	s := c.Stats()
	if s.Evictions != 1 || s.Capacity != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestUnbounded(t *testing.T) {
	c := New[int, int](0)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
	}
	if c.Len() != 1000 || c.Stats().Evictions != 0 {
		t.Errorf("Len() = %d, evictions = %d", c.Len(), c.Stats().Evictions)
	}
}

func TestDelete(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	if !c.Delete("a") || c.Delete("a") {
		t.Error("Delete(a) twice did not report true then false")
	}
	c.Set("c", 3)
	c.Set("d", 4)
	c.Set("e", 5)
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](4)
	calls := 0
	create := func() (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("k", create)
		if err != nil || v != 7 {
			t.Fatalf("GetOrCreate() = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	errBoom := errors.New("boom")
	if _, err := c.GetOrCreate("bad", func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
		t.Errorf("GetOrCreate(bad) error = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed create was cached")
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := New[int, int](8)
	var mu sync.Mutex
	created := map[int]int{}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := i % 4
				_, _ = c.GetOrCreate(k, func() (int, error) {
					mu.Lock()
					created[k]++
					mu.Unlock()
					return k * k, nil
				})
			}
		}()
	}
	wg.Wait()
	for k, n := range created {
		if n != 1 {
			t.Errorf("key %d created %d times", k, n)
		}
	}
}
