package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
)

const apiKeyPrefix = "shp_"

// ProfileGetter loads the profile that owns a key.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByProfileID(ctx context.Context, profileID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService issues and validates profile API keys.
type AuthService struct {
	profiles ProfileGetter
	keyRepo  APIKeyRepository
	uuidGen  UUIDGenerator
}

func NewAuthService(profiles ProfileGetter, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		profiles: profiles,
		keyRepo:  keyRepo,
		uuidGen:  uuidGen,
	}
}

// CreateAPIKey issues a fresh token for profileID and returns it. The
// plaintext is never stored and cannot be recovered later.
func (s *AuthService) CreateAPIKey(ctx context.Context, profileID, name string) (string, error) {
	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}
	if err := s.store(ctx, profileID, name, token); err != nil {
		return "", err
	}
	return token, nil
}

// CreateAPIKeyWithToken registers a caller-chosen token, used to bootstrap
// a known key on startup.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, profileID, name, token string) error {
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected shp_<64 hex chars>)")
	}
	return s.store(ctx, profileID, name, token)
}

func (s *AuthService) store(ctx context.Context, profileID, name, token string) error {
	if profileID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "profile ID is required")
	}
	if strings.TrimSpace(name) == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return err
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), profileID, name, hashToken(token), time.Now().UTC(), nil)
	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}
	return s.keyRepo.Create(ctx, key)
}

// ValidateAPIKey returns the ID of the profile that owns token.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	hash := hashToken(token)

	key, err := s.keyRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}

	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}

	return key.ProfileID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, profileID string) ([]*domain.APIKey, error) {
	if profileID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "profile ID is required")
	}

	return s.keyRepo.GetByProfileID(ctx, profileID)
}

func (s *AuthService) GetAPIKeyByToken(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}
	hash := hashToken(token)
	return s.keyRepo.GetByHash(ctx, hash)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
