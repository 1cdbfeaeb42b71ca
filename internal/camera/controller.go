package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"

	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/acquisition"
)

// State of a camera controller.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

const (
	// AccessErrorMessage is shown when the device cannot be acquired.
	AccessErrorMessage = "Could not access camera. Please ensure camera permissions are granted."

	CaptureName    = "captured-image.jpg"
	CaptureType    = "image/jpeg"
	CaptureQuality = 95
)

// ErrNotStreaming is returned by Capture when no stream is held.
var ErrNotStreaming = errors.New("camera is not streaming")

// Status is a snapshot of the controller for rendering.
type Status struct {
	State   State
	Facing  Facing
	Message string
}

// Controller owns at most one stream of a Device at a time.
type Controller struct {
	device Device
	logger *zap.Logger

	mu      sync.Mutex
	stream  Stream
	facing  Facing
	state   State
	message string
}

// NewController returns an idle controller facing the rear camera.
func NewController(device Device, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		device: device,
		logger: logger.Named("camera"),
		facing: FacingEnvironment,
		state:  StateIdle,
	}
}

// Start acquires a stream for the current facing mode, releasing any
// previously held stream first. Calling it again after a failure retries.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx)
}

// SwitchCamera toggles front/rear and re-acquires.
func (c *Controller) SwitchCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facing = c.facing.Toggle()
	return c.startLocked(ctx)
}

// SetFacing selects the facing mode used by the next Start.
func (c *Controller) SetFacing(f Facing) {
	c.mu.Lock()
	c.facing = f
	c.mu.Unlock()
}

func (c *Controller) startLocked(ctx context.Context) error {
	c.releaseLocked()

	if c.device == nil {
		c.fail(ErrNoDevice)
		return ErrNoDevice
	}

	stream, err := c.device.AcquireStream(ctx, DefaultConstraints(c.facing))
	if err != nil {
		c.fail(err)
		return fmt.Errorf("acquire %s camera: %w", c.facing.Label(), err)
	}

	c.stream = stream
	c.state = StateStreaming
	c.message = ""
	c.logger.Debug("camera stream acquired", zap.String("facing", string(c.facing)))
	return nil
}

func (c *Controller) fail(err error) {
	c.state = StateError
	c.message = AccessErrorMessage
	c.logger.Warn("camera access failed", zap.String("facing", string(c.facing)), zap.Error(err))
}

// Capture grabs the current frame, encodes it as JPEG and hands it to
// onCapture.
func (c *Controller) Capture(ctx context.Context, onCapture acquisition.CaptureFunc) error {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return ErrNotStreaming
	}

	frame, err := stream.CaptureFrame(ctx)
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: CaptureQuality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	if onCapture != nil {
		onCapture(acquisition.Image{Name: CaptureName, ContentType: CaptureType, Data: buf.Bytes()})
	}
	return nil
}

// Release stops the held stream. It is a no-op when nothing is held.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	if c.state == StateStreaming {
		c.state = StateIdle
	}
}

func (c *Controller) releaseLocked() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Stop(); err != nil {
		c.logger.Warn("failed to stop camera stream", zap.Error(err))
	}
	c.stream = nil
}

// Status reports the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Facing: c.facing, Message: c.message}
}
