package profile

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/nutriscan/internal/apiclient"
	"github.com/example/nutriscan/internal/models"
)

type stubRemote struct {
	getEnvelope  *models.ProfileEnvelope
	getErr       error
	saveEnvelope *models.ProfileEnvelope
	saveErr      error
	saved        []models.UserProfile
}

func (s *stubRemote) GetProfile(context.Context) (*models.ProfileEnvelope, error) {
	return s.getEnvelope, s.getErr
}

func (s *stubRemote) SaveProfile(_ context.Context, p models.UserProfile) (*models.ProfileEnvelope, error) {
	s.saved = append(s.saved, p)
	return s.saveEnvelope, s.saveErr
}

func TestFormProfileBlankCaloriesIsNil(t *testing.T) {
	p, err := ParseForm(url.Values{"name": {"Alex"}, "daily_calorie_target": {"  "}}).Profile()
	require.NoError(t, err)
	assert.Nil(t, p.DailyCalorieTarget)
	assert.Equal(t, []string{}, p.Allergies)
}

func TestFormProfileParsesAndDeduplicates(t *testing.T) {
	values := url.Values{
		"name":                 {"Alex"},
		"weight_goal":          {"lose"},
		"activity_level":       {"very-active"},
		"dietary_restrictions": {"vegan", "vegan", "halal"},
		"allergies":            {"peanuts"},
		"daily_calorie_target": {"1800"},
	}
	p, err := ParseForm(values).Profile()
	require.NoError(t, err)

	require.NotNil(t, p.DailyCalorieTarget)
	assert.Equal(t, 1800, *p.DailyCalorieTarget)
	assert.Equal(t, models.WeightGoalLose, p.WeightGoal)
	assert.Equal(t, models.ActivityVeryActive, p.ActivityLevel)
	assert.Equal(t, []string{"vegan", "halal"}, p.DietaryRestrictions)
}

func TestFormProfileRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		values url.Values
		want   error
	}{
		{"decimal calories", url.Values{"daily_calorie_target": {"1800.5"}}, ErrInvalidCalories},
		{"text calories", url.Values{"daily_calorie_target": {"lots"}}, ErrInvalidCalories},
		{"negative calories", url.Values{"daily_calorie_target": {"-5"}}, ErrInvalidCalories},
		{"unknown goal", url.Values{"weight_goal": {"bulk"}}, ErrInvalidChoice},
		{"unknown allergy", url.Values{"allergies": {"gluten"}}, ErrInvalidChoice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseForm(tc.values).Profile()
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFormFromProfileRoundTrip(t *testing.T) {
	target := 2100
	stored := &models.UserProfile{UserID: "u1", Name: "Sam", Allergies: []string{"milk"}, DailyCalorieTarget: &target}

	form := FormFromProfile(stored)
	assert.Equal(t, "2100", form.DailyCalorieTarget)
	assert.True(t, form.Includes(form.Allergies, "milk"))
	assert.False(t, form.Includes(form.Allergies, "soy"))

	p, err := form.Profile()
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 2100, *p.DailyCalorieTarget)

	assert.Equal(t, Form{}, FormFromProfile(nil))
}

func TestLoadFailuresReportNotFound(t *testing.T) {
	cases := []struct {
		name   string
		remote *stubRemote
	}{
		{"success false", &stubRemote{getEnvelope: &models.ProfileEnvelope{Success: false}}},
		{"transport error", &stubRemote{getErr: errors.New("connection refused")}},
		{"no profile", &stubRemote{getEnvelope: &models.ProfileEnvelope{Success: true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := NewStore(tc.remote, nil).Load(context.Background())
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestLoadReturnsProfile(t *testing.T) {
	remote := &stubRemote{getEnvelope: &models.ProfileEnvelope{Success: true, Profile: &models.UserProfile{Name: "Alex"}}}
	p, ok := NewStore(remote, nil).Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Alex", p.Name)
	assert.NotNil(t, p.HealthConditions)
}

func TestSaveErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		remote *stubRemote
		want   string
	}{
		{"server message", &stubRemote{saveEnvelope: &models.ProfileEnvelope{Error: "Name is required"}}, "Name is required"},
		{"rejected without message", &stubRemote{saveEnvelope: &models.ProfileEnvelope{}}, FallbackSaveError},
		{"transport error", &stubRemote{saveErr: errors.New("timeout")}, FallbackSaveError},
		{"status error with message", &stubRemote{saveErr: &apiclient.StatusError{Operation: "save profile", StatusCode: 422, Message: "Invalid activity level"}}, "Invalid activity level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewStore(tc.remote, nil).Save(context.Background(), models.UserProfile{Name: "Alex"})
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestSavePrefersServerCopy(t *testing.T) {
	remote := &stubRemote{saveEnvelope: &models.ProfileEnvelope{Success: true, Profile: &models.UserProfile{UserID: "u9", Name: "Alex"}}}
	p, err := NewStore(remote, nil).Save(context.Background(), models.UserProfile{Name: "Alex"})
	require.NoError(t, err)
	assert.Equal(t, "u9", p.UserID)
	require.Len(t, remote.saved, 1)

	remote = &stubRemote{saveEnvelope: &models.ProfileEnvelope{Success: true}}
	p, err = NewStore(remote, nil).Save(context.Background(), models.UserProfile{Name: "Kim"})
	require.NoError(t, err)
	assert.Equal(t, "Kim", p.Name)
}
