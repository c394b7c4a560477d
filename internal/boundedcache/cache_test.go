package boundedcache

import (
	"fmt"
	"reflect"
	"testing"
)

func TestCache_EvictsOldestInserted(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if evicted := c.Set("c", 3); !evicted {
		t.Fatal("expected eviction when exceeding capacity")
	}

	if c.Contains("a") {
		t.Fatal("expected oldest key a to be evicted")
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestCache_ResetMovesToMostRecentWithoutGrowing(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("a", 10)

	if c.Len() != 3 {
		t.Fatalf("expected size 3, got %d", c.Len())
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Fatalf("unexpected order after re-set: %v", got)
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected overwritten value 10, got %d", v)
	}

	c.Set("d", 4)
	if c.Contains("b") {
		t.Fatal("expected b to be evicted after a was refreshed")
	}
}

func TestCache_ReadsDoNotReorder(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	_ = c.Contains("a")
	_ = c.GetOr("a", 0)
	c.Set("c", 3)

	if c.Contains("a") {
		t.Fatal("reads must not protect a from eviction")
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := New[string, int](1)
	if _, ok := c.Get("nope"); ok {
		t.Fatal("expected missing signal")
	}
	if got := c.GetOr("nope", 42); got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
}

func TestCache_DeleteEachAndClear(t *testing.T) {
	c := New[int, string](4)
	for i := 1; i <= 4; i++ {
		c.Set(i, fmt.Sprint(i))
	}
	if !c.Delete(2) {
		t.Fatal("expected delete to report removal")
	}
	if c.Delete(2) {
		t.Fatal("expected second delete to report nothing removed")
	}

	var pairs []string
	c.Each(func(k int, v string) bool {
		pairs = append(pairs, fmt.Sprintf("%d=%s", k, v))
		return true
	})
	if !reflect.DeepEqual(pairs, []string{"1=1", "3=3", "4=4"}) {
		t.Fatalf("unexpected pairs: %v", pairs)
	}
	if got := c.Values(); !reflect.DeepEqual(got, []string{"1", "3", "4"}) {
		t.Fatalf("unexpected values: %v", got)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestCache_CapacityClamped(t *testing.T) {
	c := New[string, int](0)
	if c.Capacity() != 1 {
		t.Fatalf("expected capacity 1, got %d", c.Capacity())
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 1 || !c.Contains("b") {
		t.Fatalf("unexpected contents: %v", c.Keys())
	}
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	for n := 1; n <= 6; n++ {
		c := New[int, int](n)
		history := make([]int, 0, 64)
		for i := 0; i < 40; i++ {
			key := (i * 7) % 11
			c.Set(key, i)
			history = append(history, key)
			if c.Len() > n {
				t.Fatalf("capacity %d exceeded: %d", n, c.Len())
			}
		}

		// Expected contents: the last n distinct keys touched, oldest first.
		want := make([]int, 0, n)
		seen := make(map[int]bool)
		for i := len(history) - 1; i >= 0 && len(want) < n; i-- {
			if seen[history[i]] {
				continue
			}
			seen[history[i]] = true
			want = append([]int{history[i]}, want...)
		}
		if got := c.Keys(); !reflect.DeepEqual(got, want) {
			t.Fatalf("capacity %d: got keys %v want %v", n, got, want)
		}
	}
}
