package camera

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/models"
)

type stubValidator struct {
	verdict gemini.Verdict
	err     error
	block   chan struct{}
	calls   int
}

func (v *stubValidator) ValidateImage(ctx context.Context, jpegImage []byte) (gemini.Verdict, error) {
	v.calls++
	if v.block != nil {
		<-v.block
	}
	return v.verdict, v.err
}

type stubAnalyzer struct {
	analysis *models.Analysis
	err      error
}

func (a *stubAnalyzer) AnalyzeImage(ctx context.Context, jpegImage []byte, styles []string) (*models.Analysis, error) {
	return a.analysis, a.err
}

func brightFactory(src *stubSource) SourceFactory {
	return func() (FrameSource, error) {
		return src, nil
	}
}

func newLiveSession(t *testing.T, src *stubSource, v *stubValidator, a *stubAnalyzer) *Session {
	t.Helper()
	s := NewSession(v, a, brightFactory(src), time.Millisecond)
	if err := s.StartLive(context.Background()); err != nil {
		t.Fatalf("StartLive failed: %v", err)
	}
	waitFor(t, s.LightOk)
	return s
}

func TestCaptureRejectedWithoutReadiness(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{5, 5, 5, 255})}
	s := NewSession(&stubValidator{}, &stubAnalyzer{}, brightFactory(src), time.Millisecond)

	if err := s.Capture(); !errors.Is(err, ErrNotLive) {
		t.Fatalf("idle capture: got %v, want ErrNotLive", err)
	}

	if err := s.StartLive(context.Background()); err != nil {
		t.Fatalf("StartLive failed: %v", err)
	}
	defer s.Stop()
	waitFor(t, func() bool { return s.monitorLuminance() > 0 })

	if err := s.Capture(); !errors.Is(err, ErrLowLight) {
		t.Fatalf("dark capture: got %v, want ErrLowLight", err)
	}
	if s.State() != StateLive {
		t.Fatalf("rejected capture must stay live, state = %s", s.State())
	}
}

// monitorLuminance exposes the monitor reading for tests.
func (s *Session) monitorLuminance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor == nil {
		return 0
	}
	return s.monitor.Luminance()
}

func TestCaptureReleasesDevice(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	s := newLiveSession(t, src, &stubValidator{}, &stubAnalyzer{})

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if s.State() != StateValidating {
		t.Fatalf("state after capture = %s, want validating", s.State())
	}
	if src.closeCount() != 1 {
		t.Fatalf("device close count = %d, want 1", src.closeCount())
	}
}

func TestValidateHappyPathAdvancesToAnalyzing(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{verdict: gemini.Verdict{IsValid: true}}
	s := newLiveSession(t, src, v, &stubAnalyzer{})

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if err := s.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if s.State() != StateAnalyzing {
		t.Fatalf("state = %s, want analyzing", s.State())
	}
	if len(s.ValidatedImage()) == 0 {
		t.Fatal("validated image must be retained")
	}
}

func TestNegativeVerdictResumesLive(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{verdict: gemini.Verdict{IsValid: false, Issues: []string{"rostro no visible"}}}
	s := newLiveSession(t, src, v, &stubAnalyzer{})

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	err := s.Validate(context.Background())
	var ve *VerdictError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want VerdictError", err)
	}
	if ve.Error() != "rostro no visible" {
		t.Fatalf("verdict message = %q", ve.Error())
	}
	if s.State() != StateLive {
		t.Fatalf("state after rejection = %s, want live again", s.State())
	}
	if len(s.ValidatedImage()) != 0 {
		t.Fatal("rejected image must never be retained as validated")
	}
}

func TestValidatorErrorFailsClosed(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{err: errors.New("upstream unavailable")}
	s := newLiveSession(t, src, v, &stubAnalyzer{})

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if err := s.Validate(context.Background()); err == nil {
		t.Fatal("transport error must surface")
	}
	if s.State() == StateAnalyzing {
		t.Fatal("unvalidated image must never reach analysis")
	}
}

func TestValidateIsSingleFlight(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{verdict: gemini.Verdict{IsValid: true}, block: make(chan struct{})}
	s := newLiveSession(t, src, v, &stubAnalyzer{})

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	first := make(chan error, 1)
	go func() { first <- s.Validate(context.Background()) }()

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.inFlight
	})

	if err := s.Validate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second call: got %v, want ErrBusy", err)
	}

	close(v.block)
	if err := <-first; err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if v.calls != 1 {
		t.Fatalf("validator called %d times, want 1", v.calls)
	}
}

func TestAnalyzeReachesPresenting(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{verdict: gemini.Verdict{IsValid: true}}
	a := &stubAnalyzer{analysis: &models.Analysis{Season: "invierno profundo"}}
	s := newLiveSession(t, src, v, a)

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if err := s.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	got, err := s.Analyze(context.Background(), []string{"clasico"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Season != "invierno profundo" {
		t.Fatalf("unexpected analysis: %+v", got)
	}
	if s.State() != StatePresenting {
		t.Fatalf("state = %s, want presenting", s.State())
	}
}

func TestAnalyzeFailureIsNotTerminal(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	v := &stubValidator{verdict: gemini.Verdict{IsValid: true}}
	a := &stubAnalyzer{err: errors.New("model overloaded")}
	s := newLiveSession(t, src, v, a)

	if err := s.Capture(); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if err := s.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if _, err := s.Analyze(context.Background(), nil); err == nil {
		t.Fatal("analyzer error must surface")
	}
	if s.State() != StateLive {
		t.Fatalf("state after analyze failure = %s, want live", s.State())
	}
}

func TestSubmitUploadWithoutDevice(t *testing.T) {
	v := &stubValidator{verdict: gemini.Verdict{IsValid: true}}
	s := NewSession(v, &stubAnalyzer{analysis: &models.Analysis{}}, nil, 0)

	if err := s.SubmitUpload([]byte("jpeg-bytes")); err != nil {
		t.Fatalf("SubmitUpload failed: %v", err)
	}
	if err := s.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if s.State() != StateAnalyzing {
		t.Fatalf("state = %s, want analyzing", s.State())
	}
}

func TestStopReleasesFromAnyState(t *testing.T) {
	src := &stubSource{frame: uniformImage(color.RGBA{128, 128, 128, 255})}
	s := newLiveSession(t, src, &stubValidator{}, &stubAnalyzer{})

	s.Stop()
	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	if src.closeCount() != 1 {
		t.Fatalf("device close count = %d, want 1", src.closeCount())
	}
}
