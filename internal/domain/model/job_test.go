package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTypeUnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    JobType
		wantErr bool
	}{
		{"CREATE", JobTypeCreate, false},
		{"create", JobTypeCreate, false},
		{" update ", JobTypeUpdate, false},
		{"DELETE", JobTypeDelete, false},
		{"REPUBLISH", JobTypeRepublish, false},
		{"", "", true},
		{"DESTROY", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var jt JobType
			err := jt.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, jt)
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"zero of three", 0, 3, 0},
		{"one of three", 1, 3, 33},
		{"two of three", 2, 3, 67},
		{"three of three", 3, 3, 100},
		{"one of six", 1, 6, 17},
		{"half rounds up", 1, 8, 13}, // 12.5 -> 13
		{"three of six", 3, 6, 50},
		{"five of six", 5, 6, 83},
		{"one of seven", 1, 7, 14},
		{"overshoot clamps", 9, 6, 100},
		{"negative clamps", -1, 6, 0},
		{"zero total", 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(tt.completed, tt.total))
		})
	}
}

func TestRefMapMerge(t *testing.T) {
	base := RefMap{"a": "1", "b": "2"}
	merged := base.Merge(RefMap{"b": "override", "c": "3"})

	assert.Equal(t, RefMap{"a": "1", "b": "override", "c": "3"}, merged)
	// Inputs stay untouched.
	assert.Equal(t, RefMap{"a": "1", "b": "2"}, base)

	var nilMap RefMap
	assert.Equal(t, RefMap{"x": "y"}, nilMap.Merge(RefMap{"x": "y"}))
	assert.Equal(t, base, base.Merge(nil))
}

func TestCreateJobRequestValidate(t *testing.T) {
	valid := CreateJobRequest{TenantID: "tenant-1", Type: JobTypeCreate}
	assert.NoError(t, valid.Validate())

	missing := CreateJobRequest{Type: JobTypeCreate}
	assert.ErrorContains(t, missing.Validate(), "tenant id")

	blank := CreateJobRequest{TenantID: "   ", Type: JobTypeCreate}
	assert.ErrorContains(t, blank.Validate(), "tenant id")

	badType := CreateJobRequest{TenantID: "tenant-1", Type: "NOPE"}
	assert.ErrorContains(t, badType.Validate(), "job type")
}
