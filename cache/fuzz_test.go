package cache

import (
	"errors"
	"strings"
	"testing"

	"github.com/IvanBrykalov/costcache/lru"
)

// Fuzz basic Set/Get/Delete semantics under arbitrary string inputs.
// NOTE: key/value lengths are capped to keep memory bounded while fuzzing.
func FuzzCache_SetGetDelete(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c, err := New[string, string](Options[string, string]{Budget: 16, Shards: 4})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = c.Close() })

		c.Set(k, v)
		got, err := c.Get(k)
		if err != nil || got != v {
			t.Fatalf("after Set/Get: want %q, got %q err=%v", v, got, err)
		}
		if p, ok := c.Peek(k); !ok || p != v {
			t.Fatalf("Peek: want %q, got %q ok=%v", v, p, ok)
		}

		if err := c.Delete(k); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := c.Get(k); !errors.Is(err, lru.ErrKeyNotFound) {
			t.Fatalf("key must be absent after Delete, err=%v", err)
		}
		if c.Len() != 0 || c.Cost() != 0 {
			t.Fatalf("after Delete: len=%d cost=%v", c.Len(), c.Cost())
		}
	})
}
