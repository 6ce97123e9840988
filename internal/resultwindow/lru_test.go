package resultwindow

import (
	"testing"

	"github.com/dictdeck/dictdeck/internal/searchipc"
)

func page(kw string) []searchipc.KeyItem {
	return []searchipc.KeyItem{{Keyword: kw, EntryCount: 1}}
}

func TestPageCacheEvictionOrder(t *testing.T) {
	c := newPageCache(2)
	c.put(0, page("a"))
	c.put(1, page("b"))

	// Reading page 0 makes page 1 the eviction candidate.
	if _, ok := c.get(0); !ok {
		t.Fatal("page 0 should be cached")
	}
	c.put(2, page("c"))

	if _, ok := c.peek(1); ok {
		t.Error("page 1 should have been evicted")
	}
	if _, ok := c.peek(0); !ok {
		t.Error("page 0 should survive")
	}
	if c.len() != 2 {
		t.Errorf("cache should hold 2 pages, has %d", c.len())
	}
}

func TestPageCachePeekDoesNotTouch(t *testing.T) {
	c := newPageCache(2)
	c.put(0, page("a"))
	c.put(1, page("b"))

	// peek must not refresh page 0's recency.
	c.peek(0)
	c.put(2, page("c"))

	if _, ok := c.peek(0); ok {
		t.Error("page 0 should have been evicted despite the peek")
	}
}

func TestPageCachePutExistingKeepsItems(t *testing.T) {
	c := newPageCache(2)
	c.put(0, page("original"))
	c.put(0, page("replacement"))

	items, ok := c.get(0)
	if !ok {
		t.Fatal("page 0 should be cached")
	}
	if items[0].Keyword != "original" {
		t.Errorf("pages are immutable once stored, got %q", items[0].Keyword)
	}
}

func TestPageCacheClear(t *testing.T) {
	c := newPageCache(4)
	c.put(0, page("a"))
	c.put(1, page("b"))
	c.clear()

	if c.len() != 0 {
		t.Errorf("clear should empty the cache, has %d", c.len())
	}
	if _, ok := c.peek(0); ok {
		t.Error("cleared cache should not return pages")
	}
}
