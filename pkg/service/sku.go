package service

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	skuAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	skuSuffixSize = 5
)

// skuGenerator produces SKU-<millis base36>-<5 random base36> codes. Suffixes
// handed out within one millisecond are remembered so a process never
// repeats a code, and the timestamp never moves backwards.
type skuGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMs int64
	used   map[string]struct{}
}

func newSKUGenerator(now func() time.Time) *skuGenerator {
	return &skuGenerator{now: now, used: make(map[string]struct{})}
}

func (g *skuGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms > g.lastMs {
		g.lastMs = ms
		clear(g.used)
	}

	for {
		suffix := randomBase36(skuSuffixSize)
		if _, dup := g.used[suffix]; dup {
			continue
		}
		g.used[suffix] = struct{}{}
		return strings.ToUpper("SKU-" + strconv.FormatInt(g.lastMs, 36) + "-" + suffix)
	}
}

func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = skuAlphabet[rand.Intn(len(skuAlphabet))]
	}
	return string(b)
}
