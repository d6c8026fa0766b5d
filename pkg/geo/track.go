package geo

import "sync"

// TrackBuffer keeps a rolling window of fixes and derives the course over ground.
type TrackBuffer struct {
	mu         sync.RWMutex
	samples    []Point
	windowSize int
	minSpread  float64
}

// NewTrackBuffer creates a buffer with the given window size. A course is only
// reported once the window spans at least minSpreadMeters, otherwise GPS jitter
// while standing still produces random headings.
func NewTrackBuffer(windowSize int, minSpreadMeters float64) *TrackBuffer {
	if windowSize < 2 {
		windowSize = 2
	}
	return &TrackBuffer{
		windowSize: windowSize,
		minSpread:  minSpreadMeters,
	}
}

// Push adds a fix and returns the bearing from the oldest to the newest sample.
// ok is false while the window is too short to tell a direction.
func (b *TrackBuffer) Push(p Point) (course float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, p)
	if len(b.samples) > b.windowSize {
		b.samples = b.samples[1:]
	}

	if len(b.samples) < 2 {
		return 0, false
	}

	first, last := b.samples[0], b.samples[len(b.samples)-1]
	if Distance(first, last) < b.minSpread {
		return 0, false
	}
	return Bearing(first, last), true
}

// Reset clears the buffer history.
func (b *TrackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}
