package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// DefaultPool lists current desktop Edge and Chromium User-Agents. The
// browser is driven through a real profile, so the agents stay within the
// Chromium family to keep the UA consistent with the TLS and JS fingerprint.
var DefaultPool = []string{
	// Edge Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36 Edg/125.0.0.0",
	// Edge Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36 Edg/125.0.0.0",
	// Edge Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	// Chrome Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	// Chrome Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	// Chrome Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// platformTokens maps GOOS values to the token a matching UA contains.
var platformTokens = map[string]string{
	"windows": "Windows NT",
	"darwin":  "Macintosh",
	"linux":   "X11; Linux",
}

// Pool is a fixed set of User-Agents handed out round-robin or at random.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool from uas, falling back to DefaultPool when empty.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			copied = append(copied, ua)
		}
	}
	return &Pool{uas: copied}
}

// Len reports how many agents the pool holds.
func (p *Pool) Len() int {
	return len(p.uas)
}

// Next returns agents in round-robin order. Safe for concurrent use.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a uniformly chosen agent using crypto/rand.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// ForPlatform returns the next agent whose platform token matches goos
// (a runtime.GOOS value). Sites compare navigator.platform with the UA, so a
// Windows UA on a Linux host is a cheap tell. Falls back to Next when no agent
// matches.
func (p *Pool) ForPlatform(goos string) string {
	token, ok := platformTokens[goos]
	if !ok {
		return p.Next()
	}
	n := len(p.uas)
	for i := 0; i < n; i++ {
		ua := p.Next()
		if strings.Contains(ua, token) {
			return ua
		}
	}
	return p.Next()
}

// All returns a copy of the agents in the pool.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
