package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Identifier kinds the service factory draws from. Each kind counts on its own
// so a test can predict "booking-1" regardless of how many accounts exist.
const (
	KindAccount = "account"
	KindBooking = "booking"
	KindHoliday = "holiday"
)

// IDGenerator hands out deterministic identifiers, one sequence per kind.
// In UUID mode every value is the name-based UUID of "<kind>-<n>", which is
// the shape production rows carry.
type IDGenerator struct {
	mu     sync.Mutex
	counts map[string]uint64
	uuids  bool
}

// NewIDGenerator returns a generator yielding "<kind>-<n>" values.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counts: make(map[string]uint64)}
}

// NewUUIDGenerator returns a generator yielding reproducible UUIDs.
func NewUUIDGenerator() *IDGenerator {
	g := NewIDGenerator()
	g.uuids = true
	return g
}

// Next returns the next identifier of kind.
func (g *IDGenerator) Next(kind string) string {
	g.mu.Lock()
	g.counts[kind]++
	n := g.counts[kind]
	g.mu.Unlock()

	id := fmt.Sprintf("%s-%d", kind, n)
	if g.uuids {
		return UUIDFor(id)
	}
	return id
}

// Func binds Next to kind for constructor injection.
func (g *IDGenerator) Func(kind string) func() string {
	if g == nil {
		return func() string { return "" }
	}
	return func() string { return g.Next(kind) }
}

// Issued reports how many identifiers of kind have been handed out.
func (g *IDGenerator) Issued(kind string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[kind]
}

// UUIDFor maps a fixture identifier onto the UUID an IDGenerator in UUID mode
// would return for it.
func UUIDFor(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
