package session

import (
	"time"

	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/profile"
)

// Tab is the active top-level view.
type Tab string

const (
	TabScan    Tab = "scan"
	TabProfile Tab = "profile"
	TabHistory Tab = "history"
)

// InputMode selects how the scan view acquires an image. The two modes are
// mutually exclusive.
type InputMode string

const (
	InputUpload InputMode = "upload"
	InputCamera InputMode = "camera"
)

// ParseInputMode returns the mode for value, defaulting to upload.
func ParseInputMode(value string) InputMode {
	if InputMode(value) == InputCamera {
		return InputCamera
	}
	return InputUpload
}

// State is the application state of one browser session.
type State struct {
	ID           string                 `json:"id"`
	ActiveTab    Tab                    `json:"active_tab"`
	InputMode    InputMode              `json:"input_mode"`
	Loading      bool                   `json:"loading"`
	LastResult   *models.AnalysisResult `json:"last_result,omitempty"`
	Profile      *models.UserProfile    `json:"profile,omitempty"`
	ProfileFetch profile.FetchState     `json:"profile_fetch"`
	ProfileSave  profile.SaveState      `json:"profile_save"`
	ProfileError string                 `json:"profile_error,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// New returns the initial state: scan tab, upload mode, nothing loaded.
func New(id string) State {
	return State{
		ID:           id,
		ActiveTab:    TabScan,
		InputMode:    InputUpload,
		ProfileFetch: profile.FetchIdle,
		ProfileSave:  profile.SaveIdle,
	}
}

// UserID is the identifier forwarded with scans, empty when no profile with
// an identifier is known.
func (s State) UserID() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.UserID
}

// Transition is a named state change. Only transitions mutate State.
type Transition func(*State)

// SelectTab switches the active view.
func SelectTab(tab Tab) Transition {
	return func(s *State) { s.ActiveTab = tab }
}

// SelectInputMode switches between upload and camera.
func SelectInputMode(mode InputMode) Transition {
	return func(s *State) { s.InputMode = mode }
}

// BeginScan marks a submission in flight.
func BeginScan() Transition {
	return func(s *State) { s.Loading = true }
}

// CompleteScan stores the result of the latest submission to arrive.
func CompleteScan(result models.AnalysisResult) Transition {
	return func(s *State) {
		s.Loading = false
		s.LastResult = &result
	}
}

// BeginProfileFetch marks the remote profile as loading.
func BeginProfileFetch() Transition {
	return func(s *State) { s.ProfileFetch = profile.FetchLoading }
}

// ProfileLoaded records the outcome of a fetch. A miss keeps whatever
// profile the session already had.
func ProfileLoaded(p *models.UserProfile, found bool) Transition {
	return func(s *State) {
		if !found {
			s.ProfileFetch = profile.FetchFailed
			return
		}
		s.ProfileFetch = profile.FetchLoaded
		s.Profile = p
	}
}

// BeginProfileSave marks a save in flight.
func BeginProfileSave() Transition {
	return func(s *State) {
		s.ProfileSave = profile.SaveSaving
		s.ProfileError = ""
	}
}

// ProfileSaved stores the saved profile and returns to the scan view.
func ProfileSaved(p *models.UserProfile) Transition {
	return func(s *State) {
		s.Profile = p
		s.ProfileSave = profile.SaveSaved
		s.ProfileError = ""
		s.ActiveTab = TabScan
	}
}

// ProfileSaveFailed keeps the profile view open with the error.
func ProfileSaveFailed(message string) Transition {
	return func(s *State) {
		s.ProfileSave = profile.SaveFailed
		s.ProfileError = message
		s.ActiveTab = TabProfile
	}
}

func apply(s *State, now time.Time, transitions []Transition) {
	for _, t := range transitions {
		if t != nil {
			t(s)
		}
	}
	s.UpdatedAt = now
}
