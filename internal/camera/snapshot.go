package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// SnapshotDevice serves streams from network cameras that expose a still
// frame over HTTP, one URL per facing mode.
type SnapshotDevice struct {
	urls   map[Facing]string
	client *http.Client
}

// NewSnapshotDevice returns a device for the given URLs. Empty URLs mean the
// facing mode is unavailable. It returns nil when neither URL is set.
func NewSnapshotDevice(rearURL, frontURL string, timeout time.Duration) *SnapshotDevice {
	if rearURL == "" && frontURL == "" {
		return nil
	}
	urls := make(map[Facing]string, 2)
	if rearURL != "" {
		urls[FacingEnvironment] = rearURL
	}
	if frontURL != "" {
		urls[FacingUser] = frontURL
	}
	return &SnapshotDevice{urls: urls, client: &http.Client{Timeout: timeout}}
}

// AcquireStream checks that the camera answers with a decodable frame.
func (d *SnapshotDevice) AcquireStream(ctx context.Context, c Constraints) (Stream, error) {
	url, ok := d.urls[c.Facing]
	if !ok {
		return nil, ErrNoDevice
	}
	s := &snapshotStream{url: url, client: d.client}
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type snapshotStream struct {
	url     string
	client  *http.Client
	stopped atomic.Bool
}

var errStreamStopped = errors.New("stream stopped")

func (s *snapshotStream) CaptureFrame(ctx context.Context) (image.Image, error) {
	if s.stopped.Load() {
		return nil, errStreamStopped
	}
	return s.fetch(ctx)
}

func (s *snapshotStream) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *snapshotStream) fetch(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	frame, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}
