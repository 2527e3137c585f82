package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVariablesAreValid(t *testing.T) {
	defaults := DefaultVariables()
	require.Len(t, defaults, 3)
	for _, v := range defaults {
		assert.NoError(t, v.Validate(), "variable %q", v.Name)
	}
}

func TestVariableSpecValidate(t *testing.T) {
	valid := VariableSpec{
		Name:      "nightlights",
		Band:      "avg_rad",
		Temporal:  true,
		StartYear: 2014,
		EndYear:   2023,
		Scale:     500,
		Statistic: StatMean,
	}
	require.NoError(t, valid.Validate())

	t.Run("missing band", func(t *testing.T) {
		v := valid
		v.Band = ""
		assert.Error(t, v.Validate())
	})

	t.Run("non-positive scale", func(t *testing.T) {
		v := valid
		v.Scale = 0
		assert.Error(t, v.Validate())
	})

	t.Run("unsupported statistic", func(t *testing.T) {
		v := valid
		v.Statistic = "median"
		assert.Error(t, v.Validate())
	})

	t.Run("temporal without years", func(t *testing.T) {
		v := valid
		v.StartYear, v.EndYear = 0, 0
		err := v.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start_year")
	})

	t.Run("inverted year range", func(t *testing.T) {
		v := valid
		v.StartYear, v.EndYear = 2023, 2014
		assert.Error(t, v.Validate())
	})

	t.Run("static needs no years", func(t *testing.T) {
		v := valid
		v.Temporal = false
		v.StartYear, v.EndYear = 0, 0
		assert.NoError(t, v.Validate())
	})

	t.Run("negative tile hint", func(t *testing.T) {
		v := valid
		v.TileHint = -1
		assert.Error(t, v.Validate())
	})
}

func TestVariableSpecRescales(t *testing.T) {
	assert.False(t, VariableSpec{}.Rescales(), "zero value means no rescale")
	assert.False(t, VariableSpec{RescaleFactor: 1}.Rescales(), "identity is a no-op")
	assert.True(t, VariableSpec{RescaleFactor: 0.0001}.Rescales())
	assert.True(t, VariableSpec{RescaleFactor: 1, RescaleOffset: -273.15}.Rescales())
}
