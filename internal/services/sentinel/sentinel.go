package sentinel

import (
	"math"
	"sync"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/tensor"
)

// Config holds the sentinel windows and thresholds.
type Config struct {
	WindowRef int
	WindowCur int
	DThresh   float64
	HMax      float64
}

// DefaultConfig returns ref 256, cur 128, d_thresh 0.18, H_max 0.45.
func DefaultConfig() Config {
	return Config{WindowRef: 256, WindowCur: 128, DThresh: 0.18, HMax: 0.45}
}

func (c Config) Validate() error {
	if c.WindowRef <= 0 || c.WindowCur <= 0 {
		return tensor.Configf("sentinel", "window sizes must be > 0, got ref=%d cur=%d", c.WindowRef, c.WindowCur)
	}
	return nil
}

// Capacity is the buffer size at which drift checks become active.
func (c Config) Capacity() int { return c.WindowRef + c.WindowCur }

// MetaSentinel tracks a bounded FIFO of a scalar observable and flags
// distribution drift and unsafe entropy. Updates are serialised.
type MetaSentinel struct {
	mu     sync.Mutex
	cfg    Config
	buffer []float64
}

func New(cfg Config) (*MetaSentinel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MetaSentinel{cfg: cfg, buffer: make([]float64, 0, cfg.Capacity())}, nil
}

// Config returns the sentinel configuration.
func (s *MetaSentinel) Config() Config { return s.cfg }

// Update appends value, evicts beyond capacity, then evaluates the checks.
// A non-finite value is rejected and leaves the buffer unchanged.
func (s *MetaSentinel) Update(value, entropy float64) (models.SentinelStatus, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return models.SentinelStatus{}, tensor.Numericf("sentinel", "observation is not finite: %v", value)
	}
	if math.IsNaN(entropy) {
		return models.SentinelStatus{}, tensor.Numericf("sentinel", "entropy is NaN")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := s.cfg.Capacity()
	if len(s.buffer) == capacity {
		copy(s.buffer, s.buffer[1:])
		s.buffer[capacity-1] = value
	} else {
		s.buffer = append(s.buffer, value)
	}
	return s.evaluate(entropy), nil
}

// Status evaluates the checks against the current buffer without appending.
func (s *MetaSentinel) Status(entropy float64) models.SentinelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluate(entropy)
}

func (s *MetaSentinel) evaluate(entropy float64) models.SentinelStatus {
	st := models.SentinelStatus{Size: len(s.buffer)}
	if len(s.buffer) == s.cfg.Capacity() {
		st.Active = true
		ref := s.buffer[:s.cfg.WindowRef]
		cur := s.buffer[len(s.buffer)-s.cfg.WindowCur:]
		st.KS = KSDistance(ref, cur)
		st.Drift = st.KS >= s.cfg.DThresh
	}
	st.HighEntropy = entropy >= s.cfg.HMax
	st.Safe = !st.Drift && !st.HighEntropy
	return st
}

// Reset clears the buffer, returning the sentinel to its warming state.
func (s *MetaSentinel) Reset() {
	s.mu.Lock()
	s.buffer = s.buffer[:0]
	s.mu.Unlock()
}

// Len returns the number of buffered observations.
func (s *MetaSentinel) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Snapshot copies the current buffer.
func (s *MetaSentinel) Snapshot() models.SentinelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SentinelSnapshot{
		WindowRef: s.cfg.WindowRef,
		WindowCur: s.cfg.WindowCur,
		Buffer:    append([]float64(nil), s.buffer...),
	}
}

// Restore replaces the buffer with the newest entries of snap. The sentinel
// keeps its own windows regardless of those recorded in snap.
func (s *MetaSentinel) Restore(snap models.SentinelSnapshot) error {
	for _, v := range snap.Buffer {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return tensor.Numericf("sentinel", "snapshot holds non-finite value")
		}
	}
	buf := snap.Buffer
	if c := s.cfg.Capacity(); len(buf) > c {
		buf = buf[len(buf)-c:]
	}
	s.mu.Lock()
	s.buffer = append(s.buffer[:0], buf...)
	s.mu.Unlock()
	return nil
}
