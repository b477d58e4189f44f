package services

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestNumberer_Format(t *testing.T) {
	n := NewNumberer("JIC", fixedClock(time.Date(2025, 1, 10, 15, 4, 0, 0, time.UTC)), rand.New(rand.NewSource(1)))
	pattern := regexp.MustCompile(`^JIC-20250110-\d{3}$`)

	for i := 0; i < 200; i++ {
		assert.Regexp(t, pattern, n.Next())
	}
}

func TestNumberer_PadsSuffix(t *testing.T) {
	n := &Numberer{prefix: "LAB", clock: fixedClock(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)), intn: func(int) int { return 7 }}
	assert.Equal(t, "LAB-20241231-007", n.Next())
}

func TestNumberer_DefaultPrefix(t *testing.T) {
	n := NewNumberer("", fixedClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)), rand.New(rand.NewSource(2)))
	assert.Regexp(t, `^JIC-20250301-\d{3}$`, n.Next())
}
