package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTideStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    TideStatus
		to      TideStatus
		allowed bool
	}{
		{"active to paused", TideStatusActive, TideStatusPaused, true},
		{"active to completed", TideStatusActive, TideStatusCompleted, true},
		{"paused to active", TideStatusPaused, TideStatusActive, true},
		{"paused to completed", TideStatusPaused, TideStatusCompleted, true},
		{"completed to active", TideStatusCompleted, TideStatusActive, false},
		{"completed to paused", TideStatusCompleted, TideStatusPaused, false},
		{"completed to completed", TideStatusCompleted, TideStatusCompleted, false},
		{"active to active", TideStatusActive, TideStatusActive, false},
		{"unknown status", TideStatus("archived"), TideStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAuthContext_Valid(t *testing.T) {
	assert.False(t, AuthContext{}.Valid())
	assert.True(t, AuthContext{UserID: uuid.New()}.Valid())
}
