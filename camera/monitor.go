package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// Luminance thresholds: reject near-black and near-blown-out frames.
// Both bounds are exclusive.
const (
	MinLuminance = 40.0
	MaxLuminance = 230.0
)

// sampleSize is the fixed downsample resolution used for the per-tick
// assessment. The full-resolution frame is never scanned.
const sampleSize = 100

// DefaultInterval approximates a 60Hz display refresh cadence.
const DefaultInterval = time.Second / 60

// FrameSource produces live frames from an exclusive capture device.
// Close releases the device and must be safe to call once.
type FrameSource interface {
	Frame() (image.Image, error)
	Close() error
}

// Luminance downsamples img to 100x100 and returns the average per-pixel
// luma (0-255) using the 0.299/0.587/0.114 weighting.
func Luminance(img image.Image) float64 {
	small := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var total float64
	for i := 0; i < len(small.Pix); i += 4 {
		r := float64(small.Pix[i])
		g := float64(small.Pix[i+1])
		b := float64(small.Pix[i+2])
		total += r*0.299 + g*0.587 + b*0.114
	}
	return total / float64(sampleSize*sampleSize)
}

// LightOk reports whether an average luminance is inside the usable band.
func LightOk(v float64) bool {
	return v > MinLuminance && v < MaxLuminance
}

// Monitor continuously samples a FrameSource and publishes a boolean
// readiness signal. It recomputes every tick with no smoothing and keeps
// no frame data between ticks. The monitor does not own the source; the
// session closes it.
type Monitor struct {
	source   FrameSource
	interval time.Duration

	mu        sync.Mutex
	running   bool
	lightOk   bool
	luminance float64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates a monitor over src. A non-positive interval falls
// back to DefaultInterval.
func NewMonitor(src FrameSource, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{source: src, interval: interval}
}

// Start launches the sampling loop. It returns an error if the monitor
// is already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.loop(loopCtx)
	return nil
}

// Stop cancels the sampling loop and waits for it to exit. Idempotent.
// The readiness signal drops to false so a stopped monitor never gates
// a capture open.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.lightOk = false
	m.luminance = 0
	m.mu.Unlock()
}

// LightOk returns the latest readiness signal.
func (m *Monitor) LightOk() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lightOk
}

// Luminance returns the latest average luminance.
func (m *Monitor) Luminance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.luminance
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The parent context may be cancelled from outside Stop.
			// A dead loop must never leave a stale reading gating a
			// capture open, and a later Start must succeed.
			m.mu.Lock()
			m.running = false
			m.lightOk = false
			m.luminance = 0
			m.mu.Unlock()
			return
		case <-ticker.C:
			m.assess()
		}
	}
}

func (m *Monitor) assess() {
	frame, err := m.source.Frame()
	if err != nil {
		m.mu.Lock()
		m.lightOk = false
		m.luminance = 0
		m.mu.Unlock()
		return
	}

	v := Luminance(frame)
	m.mu.Lock()
	m.luminance = v
	m.lightOk = LightOk(v)
	m.mu.Unlock()
}
