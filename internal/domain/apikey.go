package domain

import (
	"strings"
	"time"
)

const MaxAPIKeyNameLength = 100

// APIKey authenticates a profile against the API. Only the SHA-256 of the
// token is stored.
type APIKey struct {
	ID        string
	ProfileID string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func NewAPIKey(id, profileID, name, keyHash string, createdAt time.Time, revokedAt *time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		ProfileID: profileID,
		Name:      strings.TrimSpace(name),
		KeyHash:   keyHash,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// Status is "revoked" once RevokedAt is set, "active" otherwise.
func (a *APIKey) Status() string {
	if a.IsRevoked() {
		return "revoked"
	}
	return "active"
}

// ValidateAPIKey checks the fields every stored key needs.
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return NewDomainError(ErrCodeValidation, "api key cannot be nil")
	}
	switch {
	case a.ID == "":
		return NewDomainError(ErrCodeValidation, "api key id is required")
	case a.ProfileID == "":
		return NewDomainError(ErrCodeValidation, "api key profile is required")
	case strings.TrimSpace(a.Name) == "":
		return NewDomainError(ErrCodeValidation, "api key name is required")
	case len([]rune(a.Name)) > MaxAPIKeyNameLength:
		return NewDomainError(ErrCodeValidation, "api key name is too long")
	case a.KeyHash == "":
		return NewDomainError(ErrCodeValidation, "api key hash is required")
	case a.RevokedAt != nil && a.RevokedAt.Before(a.CreatedAt):
		return NewDomainError(ErrCodeValidation, "api key cannot be revoked before it was created")
	}
	return nil
}
