package resultwindow

import (
	"container/list"

	"github.com/dictdeck/dictdeck/internal/searchipc"
)

// pageCache is a bounded page-number → page store with least-recently-used
// eviction. Pages are immutable once stored; a new search clears the whole
// cache rather than invalidating pages individually, because page numbering
// is only meaningful relative to one result set.
//
// Not safe for concurrent use; the Window serializes access.
type pageCache struct {
	capacity int
	order    *list.List // front = most recently used
	pages    map[int64]*list.Element
}

type cachedPage struct {
	number int64
	items  []searchipc.KeyItem
}

func newPageCache(capacity int) *pageCache {
	return &pageCache{
		capacity: capacity,
		order:    list.New(),
		pages:    make(map[int64]*list.Element),
	}
}

// get returns the page and marks it as recently used.
func (c *pageCache) get(number int64) ([]searchipc.KeyItem, bool) {
	el, ok := c.pages[number]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedPage).items, true
}

// peek returns the page without touching recency.
func (c *pageCache) peek(number int64) ([]searchipc.KeyItem, bool) {
	el, ok := c.pages[number]
	if !ok {
		return nil, false
	}
	return el.Value.(*cachedPage).items, true
}

// put stores a page, evicting the least recently used one past capacity.
// Storing an already-present page refreshes its recency but keeps the
// original items; pages never mutate in place.
func (c *pageCache) put(number int64, items []searchipc.KeyItem) {
	if el, ok := c.pages[number]; ok {
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cachedPage{number: number, items: items})
	c.pages[number] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.pages, oldest.Value.(*cachedPage).number)
	}
}

func (c *pageCache) len() int {
	return c.order.Len()
}

func (c *pageCache) clear() {
	c.order.Init()
	c.pages = make(map[int64]*list.Element)
}
