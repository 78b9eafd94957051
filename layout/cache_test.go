package layout

import (
	"reflect"
	"sync"
	"testing"
)

func TestCacheHitSkipsMeasurer(t *testing.T) {
	m := &fixedMeasurer{advance: 1}
	opts := buildOpts(10)
	opts.Measurer = m
	c := NewCache(8)

	first, err := c.Build("[C]Amazing [G7]grace", opts)
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	calls := m.calls
	if calls == 0 {
		t.Fatalf("首次排版应调用测量后端")
	}
	second, err := c.Build("[C]Amazing [G7]grace", opts)
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if m.calls != calls {
		t.Fatalf("命中缓存时不应再测量: before=%d after=%d", calls, m.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("缓存结果与首次结果不一致")
	}

	opts.Width = 20
	if _, err := c.Build("[C]Amazing [G7]grace", opts); err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("不同宽度应各占一条缓存，实际 %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Clear 后缓存应为空")
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	opts := buildOpts(100)
	opts.Meta = map[string]string{"title": "Amazing Grace"}
	c := NewCache(2)

	a, err := c.Build("[C]Amazing", opts)
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	a.Fragments[0].X = 99
	a.Meta["title"] = "changed"

	b, err := c.Build("[C]Amazing", opts)
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if b.Fragments[0].X != 0 || b.Meta["title"] != "Amazing Grace" {
		t.Fatalf("缓存条目被调用方改写: %+v", b)
	}
}

func TestCacheConcurrentBuild(t *testing.T) {
	c := NewCache(4)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := buildOpts(12)
			if _, err := c.Build("[C]Amazing [G7]grace how [D]sweet", opts); err != nil {
				t.Errorf("并发 Build 失败: %v", err)
			}
		}()
	}
	wg.Wait()
	if c.Len() != 1 {
		t.Fatalf("相同输入应只有一条缓存，实际 %d", c.Len())
	}
}
