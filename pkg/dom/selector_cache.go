package dom

import (
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SelectorCache は、コンパイル済みのCSSセレクタを保持するキャッシュです。
// ヒット時は共有ロック、ミス時は排他ロックを取り、二重チェックしてから登録します。
// 不正なセレクタもミスとして記録し、再コンパイルしません。
type SelectorCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
}

type cacheEntry struct {
	sel cascadia.Selector
	ok  bool
}

// NewSelectorCache は、空のキャッシュを生成します。
func NewSelectorCache() *SelectorCache {
	return &SelectorCache{items: make(map[string]cacheEntry)}
}

// Get は、コンパイル済みのセレクタを返します。不正なセレクタの場合は false を返します。
func (c *SelectorCache) Get(css string) (cascadia.Selector, bool) {
	c.mu.RLock()
	e, found := c.items[css]
	c.mu.RUnlock()
	if found {
		return e.sel, e.ok
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, found := c.items[css]; found {
		return e.sel, e.ok
	}
	sel, err := cascadia.Compile(css)
	e = cacheEntry{sel: sel, ok: err == nil}
	c.items[css] = e
	return e.sel, e.ok
}

// Len は、キャッシュされているセレクタ数を返します。
func (c *SelectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Precompile は、セレクタを事前にコンパイルします。不正なセレクタの数を返します。
func (c *SelectorCache) Precompile(selectors ...string) int {
	invalid := 0
	for _, css := range selectors {
		if _, ok := c.Get(css); !ok {
			invalid++
		}
	}
	return invalid
}

// Find は、Selection の子孫からセレクタに一致する要素を返します。
// 不正なセレクタの場合は空の Selection を返します。
func (c *SelectorCache) Find(s *goquery.Selection, css string) *goquery.Selection {
	sel, ok := c.Get(css)
	if !ok {
		return s.FindNodes()
	}
	return s.FindMatcher(sel)
}

// Is は、Selection のいずれかの要素がセレクタに一致するかを返します。
func (c *SelectorCache) Is(s *goquery.Selection, css string) bool {
	sel, ok := c.Get(css)
	if !ok {
		return false
	}
	return s.IsMatcher(sel)
}
