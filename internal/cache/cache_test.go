package cache_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/cache"
)

var _ = Describe("Cache", func() {
	var (
		c   *cache.Cache[string]
		clk *clock.Mock
	)

	BeforeEach(func() {
		clk = clock.NewMock()
		var err error
		c, err = cache.New[string](cache.Config{MaxSize: 3, DefaultTTL: time.Minute, Shards: 1}, cache.WithClock(clk))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should return stored values", func() {
		c.Set("a", "alpha")
		v, ok := c.Get("a")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("alpha"))
	})

	It("should miss unknown keys", func() {
		_, ok := c.Get("nope")
		Expect(ok).To(BeFalse())
	})

	It("should expire entries after the default ttl", func() {
		c.Set("a", "alpha")
		clk.Add(59 * time.Second)
		_, ok := c.Get("a")
		Expect(ok).To(BeTrue())

		clk.Add(time.Second)
		_, ok = c.Get("a")
		Expect(ok).To(BeFalse())
		Expect(c.Len()).To(BeZero())
	})

	It("should honour a per-entry ttl", func() {
		c.SetWithTTL("short", "s", time.Second)
		c.Set("long", "l")
		clk.Add(2 * time.Second)

		_, ok := c.Get("short")
		Expect(ok).To(BeFalse())
		_, ok = c.Get("long")
		Expect(ok).To(BeTrue())
	})

	It("should evict the least recently used entry", func() {
		c.Set("a", "1")
		c.Set("b", "2")
		c.Set("c", "3")
		_, _ = c.Get("a")
		c.Set("d", "4")

		_, ok := c.Get("b")
		Expect(ok).To(BeFalse())
		for _, k := range []string{"a", "c", "d"} {
			_, ok := c.Get(k)
			Expect(ok).To(BeTrue(), k)
		}
	})

	It("should count hits and misses", func() {
		c.Set("a", "1")
		_, _ = c.Get("a")
		_, _ = c.Get("a")
		_, _ = c.Get("b")

		Expect(c.Stats()).To(Equal(cache.Stats{Hits: 2, Misses: 1, Entries: 1}))
	})

	It("should purge everything", func() {
		c.Set("a", "1")
		c.Set("b", "2")
		c.Purge()
		Expect(c.Len()).To(BeZero())
	})

	It("should never hold more than MaxSize entries across shards", func() {
		sharded, err := cache.New[int](cache.Config{MaxSize: 10, Shards: 4})
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 100; i++ {
			sharded.Set(fmt.Sprintf("k%d", i), i)
		}
		Expect(sharded.Len()).To(BeNumerically("<=", 10))
	})

	It("should be safe for concurrent use", func() {
		sharded, err := cache.New[int](cache.Config{MaxSize: 100})
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					key := fmt.Sprintf("%d-%d", g, i)
					sharded.Set(key, i)
					_, _ = sharded.Get(key)
				}
			}(g)
		}
		wg.Wait()
		Expect(sharded.Len()).To(BeNumerically("<=", 100))
	})
})
