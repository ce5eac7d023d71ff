package model

import "time"

const defaultHistoryCap = 60

// FPSPoint is a single timestamped throughput sample stored in the ring buffer.
type FPSPoint struct {
	Timestamp      time.Time
	TotalFPS       float64
	TranscodeFPS   float64
	HealthcheckFPS float64
}

// FPSSeries selects one field of FPSPoint when reading history values.
type FPSSeries int

const (
	SeriesTotal FPSSeries = iota
	SeriesTranscode
	SeriesHealthcheck
)

// FPSHistory is a fixed-size ring buffer of FPSPoints. When the buffer is
// full, new pushes overwrite the oldest entry.
type FPSHistory struct {
	buf  []FPSPoint
	head int // index of the next write position
	size int // number of valid entries
}

// NewFPSHistory creates an FPSHistory with the given capacity.
// If capacity <= 0, the default (60) is used.
func NewFPSHistory(capacity int) *FPSHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &FPSHistory{
		buf: make([]FPSPoint, capacity),
	}
}

// Push appends a new point to the history, overwriting the oldest if full.
func (h *FPSHistory) Push(p FPSPoint) {
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of valid entries in the history.
func (h *FPSHistory) Len() int {
	return h.size
}

// Clear resets the history to empty.
func (h *FPSHistory) Clear() {
	h.head = 0
	h.size = 0
}

// Values returns the selected series in chronological order (oldest first).
func (h *FPSHistory) Values(series FPSSeries) []float64 {
	out := make([]float64, h.size)
	// oldest entry sits at (head - size + cap) % cap
	start := (h.head - h.size + len(h.buf)) % len(h.buf)
	for i := 0; i < h.size; i++ {
		p := h.buf[(start+i)%len(h.buf)]
		switch series {
		case SeriesTranscode:
			out[i] = p.TranscodeFPS
		case SeriesHealthcheck:
			out[i] = p.HealthcheckFPS
		default:
			out[i] = p.TotalFPS
		}
	}
	return out
}
