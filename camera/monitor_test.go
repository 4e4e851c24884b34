package camera

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"
)

func uniformImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLightOkBoundaries(t *testing.T) {
	cases := []struct {
		v    float64
		want bool
	}{
		{39, false},
		{40, false},
		{41, true},
		{229, true},
		{230, false},
		{231, false},
	}
	for _, c := range cases {
		if got := LightOk(c.v); got != c.want {
			t.Fatalf("LightOk(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestLuminanceUniformImages(t *testing.T) {
	cases := []struct {
		name string
		c    color.RGBA
		want float64
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"midgray", color.RGBA{128, 128, 128, 255}, 128},
	}
	for _, c := range cases {
		got := Luminance(uniformImage(c.c))
		if math.Abs(got-c.want) > 1.0 {
			t.Fatalf("%s: Luminance = %v, want ~%v", c.name, got, c.want)
		}
	}
}

func TestLuminanceWeighting(t *testing.T) {
	// Pure green weighs more than pure red, which weighs more than blue.
	red := Luminance(uniformImage(color.RGBA{255, 0, 0, 255}))
	green := Luminance(uniformImage(color.RGBA{0, 255, 0, 255}))
	blue := Luminance(uniformImage(color.RGBA{0, 0, 255, 255}))

	if !(green > red && red > blue) {
		t.Fatalf("expected green > red > blue, got %v / %v / %v", green, red, blue)
	}
	if math.Abs(green-255*0.587) > 2 {
		t.Fatalf("green luminance = %v, want ~%v", green, 255*0.587)
	}
}

type stubSource struct {
	mu     sync.Mutex
	frame  image.Image
	closed int
}

func (s *stubSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, nil
}

func (s *stubSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *stubSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestMonitorPublishesReadiness(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	m := NewMonitor(src, time.Millisecond)

	if m.LightOk() {
		t.Fatal("monitor should not report ready before starting")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	waitFor(t, m.LightOk)

	if v := m.Luminance(); !LightOk(v) {
		t.Fatalf("published luminance %v out of band", v)
	}
}

func TestMonitorRejectsDarkFrames(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{10, 10, 10, 255})}
	m := NewMonitor(src, time.Millisecond)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	waitFor(t, func() bool { return m.Luminance() > 0 })
	if m.LightOk() {
		t.Fatal("dark frame must not pass the gate")
	}
}

func TestMonitorStopIsIdempotentAndDropsSignal(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	m := NewMonitor(src, time.Millisecond)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, m.LightOk)

	m.Stop()
	m.Stop()

	if m.LightOk() {
		t.Fatal("stopped monitor must not report ready")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	m.Stop()
}

func TestMonitorContextCancelDropsSignal(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	m := NewMonitor(src, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, m.LightOk)

	cancel()
	waitFor(t, func() bool { return !m.LightOk() })

	if m.Luminance() != 0 {
		t.Fatalf("dead monitor still publishes luminance %v", m.Luminance())
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("restart after external cancel failed: %v", err)
	}
	m.Stop()
}

func TestMonitorRejectsDoubleStart(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	m := NewMonitor(src, time.Millisecond)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail while running")
	}
}
