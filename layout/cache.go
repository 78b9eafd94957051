package layout

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/zeebo/blake3"
)

// Cache 以 (文本, 宽度, 字体属性, 开关, 元信息) 为键缓存排版结果。
// 键中不包含测量后端本身，同一个 Cache 只应配合同一个测量后端使用。
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

// NewCache 创建最多保存 maxEntries 条结果的缓存；maxEntries <= 0 表示不限。
func NewCache(maxEntries int) *Cache {
	return &Cache{lru: lru.New(maxEntries)}
}

// Build 与包级 Build 相同，命中缓存时返回缓存结果的深拷贝。
func (c *Cache) Build(text string, opts BuildOptions) (*Result, error) {
	key := cacheKey(text, opts)

	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		c.mu.Unlock()
		return v.(*Result).Clone(), nil
	}
	c.mu.Unlock()

	res, err := Build(text, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lru.Add(key, res.Clone())
	c.mu.Unlock()
	return res, nil
}

// Len 返回当前缓存条目数。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear 清空缓存，例如字体加载完成后需要重新排版时。
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

func cacheKey(text string, opts BuildOptions) [32]byte {
	h := blake3.New()
	fmt.Fprintf(h, "w=%g lh=%g hide=%t center=%t m=%T t=%T\n",
		opts.Width, opts.LineHeight, opts.HideChords, opts.CenterChords, opts.Measurer, opts.Typesetter)
	writeStyle(h, opts.Lyric)
	writeStyle(h, opts.Chord)
	keys := make([]string, 0, len(opts.Meta))
	for k := range opts.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%q=%q\n", k, opts.Meta[k])
	}
	io.WriteString(h, text)

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func writeStyle(w io.Writer, s TextStyle) {
	fmt.Fprintf(w, "%s|%s|%s|%s|%g|%d,%d,%d\n",
		s.Font.Name, s.Font.Src, s.Font.Style, s.Font.Family, s.Size, s.Color.R, s.Color.G, s.Color.B)
}
