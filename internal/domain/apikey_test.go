package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIKey_TrimsName(t *testing.T) {
	now := time.Now()
	key := NewAPIKey("k1", "p1", "  laptop ", "h", now, nil)

	assert.Equal(t, "laptop", key.Name)
	assert.False(t, key.IsRevoked())
	assert.Equal(t, "active", key.Status())
}

func TestAPIKey_Status(t *testing.T) {
	now := time.Now()
	revoked := now.Add(time.Hour)
	key := NewAPIKey("k1", "p1", "laptop", "h", now, &revoked)

	assert.True(t, key.IsRevoked())
	assert.Equal(t, "revoked", key.Status())
}

func TestValidateAPIKey(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Minute)
	valid := func() *APIKey { return NewAPIKey("k1", "p1", "laptop", "h", now, nil) }

	tests := []struct {
		name   string
		mutate func(k *APIKey)
		errMsg string
	}{
		{"valid", func(*APIKey) {}, ""},
		{"missing id", func(k *APIKey) { k.ID = "" }, "api key id is required"},
		{"missing profile", func(k *APIKey) { k.ProfileID = "" }, "api key profile is required"},
		{"blank name", func(k *APIKey) { k.Name = "   " }, "api key name is required"},
		{"long name", func(k *APIKey) { k.Name = strings.Repeat("ñ", MaxAPIKeyNameLength+1) }, "api key name is too long"},
		{"missing hash", func(k *APIKey) { k.KeyHash = "" }, "api key hash is required"},
		{"revoked before creation", func(k *APIKey) { k.RevokedAt = &before }, "api key cannot be revoked before it was created"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := valid()
			tt.mutate(key)

			err := ValidateAPIKey(key)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, ErrCodeValidation, CodeOf(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.Error(t, ValidateAPIKey(nil))
}
