package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/models"
)

// State is the capture session lifecycle.
type State int

const (
	StateIdle State = iota
	StateLive
	StateValidating
	StateAnalyzing
	StatePresenting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLive:
		return "live"
	case StateValidating:
		return "validating"
	case StateAnalyzing:
		return "analyzing"
	case StatePresenting:
		return "presenting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// jpegQuality matches the capture encoding used by the web client.
const jpegQuality = 80

var (
	ErrNotLive      = errors.New("session is not in live capture")
	ErrLowLight     = errors.New("lighting conditions not met")
	ErrBusy         = errors.New("a call is already in flight")
	ErrNoCandidate  = errors.New("no capture candidate to validate")
	ErrNotValidated = errors.New("no validated image to analyze")
)

// VerdictError is the normal negative outcome of validation: the image
// is usable as input but rejected by the quality judgment.
type VerdictError struct {
	Verdict gemini.Verdict
}

func (e *VerdictError) Error() string { return e.Verdict.FirstIssue() }

// Validator is the external judgment call gating analysis.
type Validator interface {
	ValidateImage(ctx context.Context, jpegImage []byte) (gemini.Verdict, error)
}

// Analyzer runs the colorimetry analysis on a validated image.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, jpegImage []byte, styles []string) (*models.Analysis, error)
}

// SourceFactory opens the capture device. The session calls it each time
// it (re)enters live capture, and closes the returned source on every
// exit path so the device is never held outside StateLive.
type SourceFactory func() (FrameSource, error)

// Session drives the capture -> validate -> analyze flow as a small
// state machine. All methods are safe for concurrent use, but the flow
// itself is serialized: validate and analyze are single-flight.
type Session struct {
	validator Validator
	analyzer  Analyzer
	openSrc   SourceFactory
	interval  time.Duration

	mu        sync.Mutex
	state     State
	source    FrameSource
	monitor   *Monitor
	candidate []byte
	validated []byte
	inFlight  bool
	analysis  *models.Analysis
}

// NewSession creates an idle session. openSrc may be nil for upload-only
// use (device access denied degrades to uploads).
func NewSession(validator Validator, analyzer Analyzer, openSrc SourceFactory, interval time.Duration) *Session {
	return &Session{
		validator: validator,
		analyzer:  analyzer,
		openSrc:   openSrc,
		interval:  interval,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LightOk reports the live readiness gate. Always false outside StateLive.
func (s *Session) LightOk() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateLive && s.monitor != nil && s.monitor.LightOk()
}

// Analysis returns the result once the session reaches StatePresenting.
func (s *Session) Analysis() *models.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// StartLive acquires the capture device and starts the quality monitor.
func (s *Session) StartLive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLive {
		return nil
	}
	if s.state == StateValidating || s.state == StateAnalyzing {
		return ErrBusy
	}
	return s.enterLiveLocked(ctx)
}

func (s *Session) enterLiveLocked(ctx context.Context) error {
	if s.openSrc == nil {
		return fmt.Errorf("no capture device available")
	}
	src, err := s.openSrc()
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	monitor := NewMonitor(src, s.interval)
	if err := monitor.Start(ctx); err != nil {
		src.Close()
		return err
	}

	s.source = src
	s.monitor = monitor
	s.state = StateLive
	return nil
}

// releaseLocked stops the monitor and closes the device. Symmetric with
// enterLiveLocked; called on every path that leaves StateLive.
func (s *Session) releaseLocked() {
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}
}

// Capture grabs the full-resolution current frame, encodes it to JPEG
// and moves to StateValidating with the camera released. It is a no-op
// error when the readiness gate is false.
func (s *Session) Capture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive {
		return ErrNotLive
	}
	if s.monitor == nil || !s.monitor.LightOk() {
		return ErrLowLight
	}

	frame, err := s.source.Frame()
	if err != nil {
		return fmt.Errorf("failed to capture frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}

	s.candidate = buf.Bytes()
	s.releaseLocked()
	s.state = StateValidating
	return nil
}

// SubmitUpload enters validation with an uploaded image instead of a
// live capture.
func (s *Session) SubmitUpload(jpegImage []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateValidating || s.state == StateAnalyzing {
		return ErrBusy
	}
	s.releaseLocked()
	s.candidate = jpegImage
	s.state = StateValidating
	return nil
}

// Validate runs the external quality judgment on the capture candidate.
// A negative verdict is returned as *VerdictError and the session
// resumes live capture; transport failures resume the same way. Only a
// definitive positive verdict advances to StateAnalyzing.
func (s *Session) Validate(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateValidating {
		s.mu.Unlock()
		return fmt.Errorf("cannot validate from state %s", s.state)
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.candidate) == 0 {
		s.mu.Unlock()
		return ErrNoCandidate
	}
	s.inFlight = true
	candidate := s.candidate
	s.mu.Unlock()

	verdict, err := s.validator.ValidateImage(ctx, candidate)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.candidate = nil
		s.resumeLiveLocked(ctx)
		return err
	}
	if !verdict.IsValid {
		s.candidate = nil
		s.resumeLiveLocked(ctx)
		return &VerdictError{Verdict: verdict}
	}

	s.validated = candidate
	s.candidate = nil
	s.state = StateAnalyzing
	return nil
}

// Analyze runs the colorimetry analysis on the validated image with up
// to 3 style tags. Failure returns the session to live capture so the
// user can retry; it is never a terminal state.
func (s *Session) Analyze(ctx context.Context, styles []string) (*models.Analysis, error) {
	s.mu.Lock()
	if s.state != StateAnalyzing {
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot analyze from state %s", s.state)
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if len(s.validated) == 0 {
		s.mu.Unlock()
		return nil, ErrNotValidated
	}
	s.inFlight = true
	validated := s.validated
	s.mu.Unlock()

	analysis, err := s.analyzer.AnalyzeImage(ctx, validated, styles)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.resumeLiveLocked(ctx)
		return nil, err
	}

	s.analysis = analysis
	s.state = StatePresenting
	return analysis, nil
}

// ValidatedImage returns the validated capture, available from
// StateAnalyzing onward.
func (s *Session) ValidatedImage() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validated
}

// resumeLiveLocked tries to reacquire the device after a negative or
// failed validation. If the device cannot be reopened (or there is
// none), the session falls back to idle rather than erroring: upload
// remains available.
func (s *Session) resumeLiveLocked(ctx context.Context) {
	if s.openSrc == nil {
		s.state = StateIdle
		return
	}
	if err := s.enterLiveLocked(ctx); err != nil {
		s.state = StateIdle
	}
}

// Stop releases the device from any state and resets to idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.candidate = nil
	s.state = StateIdle
}
