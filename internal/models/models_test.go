package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityAcceptsNumbersStringsAndNull(t *testing.T) {
	var data NutritionData
	err := json.Unmarshal([]byte(`{"calories":240,"fat":"12.5","carbohydrates":null,"protein":"unknown"}`), &data)
	require.NoError(t, err)

	assert.True(t, data.Calories.Present())
	assert.Equal(t, "240", data.Calories.String())
	assert.Equal(t, 12.5, data.Fat.Value)
	assert.False(t, data.Carbohydrates.Valid)
	assert.False(t, data.Protein.Valid)
}

func TestQuantityZeroIsNotPresent(t *testing.T) {
	assert.False(t, Q(0).Present())
	assert.False(t, Quantity{}.Present())
	assert.True(t, Q(0.1).Present())
}

func TestQuantityMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}{A: Q(5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":5,"b":null}`, string(out))
}

func TestUserProfileBlankCalorieTargetIsNull(t *testing.T) {
	out, err := json.Marshal(UserProfile{Name: "Alex"}.Normalized())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	value, ok := decoded["daily_calorie_target"]
	assert.True(t, ok, "field must be transmitted")
	assert.Nil(t, value)
	assert.Equal(t, []any{}, decoded["allergies"])
	assert.NotContains(t, decoded, "weight_goal")
}

func TestIconKnown(t *testing.T) {
	assert.True(t, IconThumbsUpDown.Known())
	assert.False(t, Icon("error").Known())
	assert.False(t, Icon("").Known())
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(Allergies, "tree-nuts"))
	assert.False(t, Contains(Allergies, "gluten"))
}
