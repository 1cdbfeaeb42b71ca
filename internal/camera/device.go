package camera

import (
	"context"
	"errors"
	"image"
)

// Facing selects which camera a stream comes from.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Toggle returns the opposite facing mode.
func (f Facing) Toggle() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Label is the user-facing name of the facing mode.
func (f Facing) Label() string {
	if f == FacingUser {
		return "front"
	}
	return "rear"
}

// ParseFacing accepts rear/front as well as the device names.
func ParseFacing(value string) (Facing, error) {
	switch value {
	case "", "rear", string(FacingEnvironment):
		return FacingEnvironment, nil
	case "front", string(FacingUser):
		return FacingUser, nil
	}
	return "", errors.New("facing must be rear or front")
}

// Constraints are preferences; a device may deliver less.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// DefaultConstraints asks for a 1920x1080 stream from the given camera.
func DefaultConstraints(f Facing) Constraints {
	return Constraints{Facing: f, Width: 1920, Height: 1080}
}

// ErrNoDevice is returned when no camera serves the requested facing mode.
var ErrNoDevice = errors.New("no camera available")

// Device grants live streams.
type Device interface {
	AcquireStream(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a held camera. Stop releases every track and is safe to call
// more than once.
type Stream interface {
	CaptureFrame(ctx context.Context) (image.Image, error)
	Stop() error
}
