// Package ident generates entity identifiers of the form
// <prefix>_<unix-millis>_<base36-suffix>.
//
// The scheme is unique enough for a single process owned by a single user.
// Two processes writing the same store at the same millisecond could collide;
// that is an accepted limitation of a single-user desktop tool.
package ident

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Entity prefixes.
const (
	Notebook = "nb"
	Note     = "note"
	Image    = "img"
)

const suffixLen = 11

var maxSuffix = new(big.Int).Exp(big.NewInt(36), big.NewInt(suffixLen), nil)

// Generator produces identifiers. The zero value is not usable; call NewGenerator.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand func() string
	last int64
}

// NewGenerator returns a generator backed by the wall clock and crypto/rand.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, rand: randomSuffix}
}

// WithClock replaces the time source. Used by tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// New returns a fresh identifier for the given prefix. The millisecond part
// never goes backwards within one generator, even if the wall clock does.
func (g *Generator) New(prefix string) string {
	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms < g.last {
		ms = g.last
	}
	g.last = ms
	g.mu.Unlock()

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(ms, 10))
	b.WriteByte('_')
	b.WriteString(g.rand())
	return b.String()
}

// Prefix returns the entity prefix of id, or "" if id is not well formed.
func Prefix(id string) string {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return ""
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return ""
	}
	return parts[0]
}

func randomSuffix() string {
	n, err := rand.Int(rand.Reader, maxSuffix)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		n = big.NewInt(time.Now().UnixNano())
	}
	s := n.Text(36)
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s
}
