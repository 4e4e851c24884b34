// Command capture-demo drives the frame quality monitor and the capture
// session against a directory of still images, cycling through them as
// if they were a live feed. Useful for tuning lighting without a device
// or an API key.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lucelabs/luce-styling-api/camera"
	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/models"
)

// dirSource cycles through decoded images from a directory.
type dirSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
}

func newDirSource(dir string) (*dirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)

	src := &dirSource{}
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			log.Printf("Skipping %s: %v", name, err)
			continue
		}
		src.frames = append(src.frames, img)
	}
	if len(src.frames) == 0 {
		return nil, fmt.Errorf("no decodable images in %s", dir)
	}
	return src, nil
}

func (s *dirSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return frame, nil
}

func (s *dirSource) Close() error { return nil }

func main() {
	dir := flag.String("dir", ".", "directory of frames to cycle through")
	interval := flag.Duration("interval", 500*time.Millisecond, "sampling interval")
	flag.Parse()

	src, err := newDirSource(*dir)
	if err != nil {
		log.Fatalf("Failed to load frames: %v", err)
	}

	fmt.Printf("Cycling %d frames from %s (thresholds %v < avg < %v)\n",
		len(src.frames), *dir, camera.MinLuminance, camera.MaxLuminance)

	monitor := camera.NewMonitor(src, *interval)
	if err := monitor.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}

	for i := 0; i < len(src.frames)+1; i++ {
		time.Sleep(*interval)
		status := "REJECT"
		if monitor.LightOk() {
			status = "OK"
		}
		fmt.Printf("tick %2d: avg luminance %6.2f  light %s\n", i, monitor.Luminance(), status)
	}
	monitor.Stop()

	// Walk the full capture flow with local stand-ins for the model
	// calls, so the state machine is observable offline.
	session := camera.NewSession(localValidator{}, localAnalyzer{}, func() (camera.FrameSource, error) {
		return src, nil
	}, *interval)

	ctx := context.Background()
	if err := session.StartLive(ctx); err != nil {
		log.Fatalf("Failed to start live capture: %v", err)
	}
	fmt.Printf("session: %s\n", session.State())

	deadline := time.Now().Add(10 * *interval)
	for !session.LightOk() {
		if time.Now().After(deadline) {
			fmt.Println("session: no frame passed the light gate, stopping")
			session.Stop()
			return
		}
		time.Sleep(*interval)
	}

	if err := session.Capture(); err != nil {
		log.Fatalf("Capture failed: %v", err)
	}
	fmt.Printf("session: %s (frame captured, device released)\n", session.State())

	if err := session.Validate(ctx); err != nil {
		log.Fatalf("Validate failed: %v", err)
	}
	fmt.Printf("session: %s\n", session.State())

	if _, err := session.Analyze(ctx, nil); err != nil {
		log.Fatalf("Analyze failed: %v", err)
	}
	fmt.Printf("session: %s\n", session.State())
	session.Stop()
}

// localValidator accepts any frame that reached it; the light gate has
// already filtered the dark and blown-out ones.
type localValidator struct{}

func (localValidator) ValidateImage(ctx context.Context, jpegImage []byte) (gemini.Verdict, error) {
	return gemini.Verdict{IsValid: true}, nil
}

// localAnalyzer returns an empty analysis so the session can finish the
// flow without an API key.
type localAnalyzer struct{}

func (localAnalyzer) AnalyzeImage(ctx context.Context, jpegImage []byte, styles []string) (*models.Analysis, error) {
	return &models.Analysis{}, nil
}
