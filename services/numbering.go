package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// Numberer issues certificate numbers of the form PREFIX-YYYYMMDD-NNN.
type Numberer struct {
	prefix string
	clock  Clock

	mu   sync.Mutex
	intn func(n int) int
}

func NewNumberer(prefix string, clock Clock, rng *rand.Rand) *Numberer {
	if prefix == "" {
		prefix = "JIC"
	}
	return &Numberer{prefix: prefix, clock: clock, intn: rng.Intn}
}

// Next formats a candidate number; uniqueness is enforced by the caller against the store.
func (n *Numberer) Next() string {
	n.mu.Lock()
	suffix := n.intn(1000)
	n.mu.Unlock()
	return fmt.Sprintf("%s-%s-%03d", n.prefix, n.clock().Format("20060102"), suffix)
}
