package profile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/apiclient"
	"github.com/example/nutriscan/internal/models"
)

// FallbackSaveError is shown when a failed save carries no message.
const FallbackSaveError = "Failed to update profile"

// FetchState tracks loading the remote profile.
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchLoading FetchState = "loading"
	FetchLoaded  FetchState = "loaded"
	FetchFailed  FetchState = "load-failed"
)

// SaveState tracks saving the profile.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveFailed SaveState = "save-failed"
)

// Remote is the part of the API client the store needs.
type Remote interface {
	GetProfile(ctx context.Context) (*models.ProfileEnvelope, error)
	SaveProfile(ctx context.Context, p models.UserProfile) (*models.ProfileEnvelope, error)
}

// Store loads and saves the user profile on the remote service.
type Store struct {
	remote Remote
	logger *zap.Logger
}

func NewStore(remote Remote, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{remote: remote, logger: logger.Named("profile_store")}
}

// Load returns the stored profile. Any failure, including a {success:false}
// answer, is logged and reported as not found so the form keeps its
// defaults.
func (s *Store) Load(ctx context.Context) (*models.UserProfile, bool) {
	envelope, err := s.remote.GetProfile(ctx)
	if err != nil {
		s.logger.Warn("failed to load profile", zap.Error(err))
		return nil, false
	}
	if !envelope.Success || envelope.Profile == nil {
		s.logger.Info("no stored profile", zap.String("error", envelope.Error))
		return nil, false
	}
	p := envelope.Profile.Normalized()
	return &p, true
}

// Save sends the profile and returns the stored copy. The returned error's
// text is suitable for display.
func (s *Store) Save(ctx context.Context, p models.UserProfile) (*models.UserProfile, error) {
	envelope, err := s.remote.SaveProfile(ctx, p)
	if err != nil {
		s.logger.Warn("failed to save profile", zap.Error(err))
		if msg, ok := apiclient.ErrorMessage(err); ok {
			return nil, errors.New(msg)
		}
		return nil, errors.New(FallbackSaveError)
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = FallbackSaveError
		}
		s.logger.Warn("profile save rejected", zap.String("error", msg))
		return nil, errors.New(msg)
	}

	saved := p
	if envelope.Profile != nil {
		saved = *envelope.Profile
	}
	saved = saved.Normalized()
	return &saved, nil
}
