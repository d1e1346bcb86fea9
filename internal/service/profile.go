package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/form"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileRepositoryInterface defines the repository interface for profile persistence
type ProfileRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByMail(ctx context.Context, mail string) (*domain.Profile, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error)
	Update(ctx context.Context, p *domain.Profile) error
	UpdateDetails(ctx context.Context, p *domain.Profile) error
	LockContent(ctx context.Context, id string) (string, error)
}

// ProfileChunkRepositoryInterface defines the repository interface for profile chunks
type ProfileChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, profileID string, chunks []domain.ProfileChunk) error
}

// ChunkBuilder produces embedded chunks for profile content.
type ChunkBuilder interface {
	BuildChunks(ctx context.Context, profileID, content string) ([]domain.ProfileChunk, error)
}

// ContentRewriter turns raw form content into indexable prose. It returns
// the input unchanged when rewriting is not possible.
type ContentRewriter interface {
	Rewrite(ctx context.Context, content string) string
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ProfileService handles profile writes and keeps chunks in sync with content.
type ProfileService struct {
	profiles ProfileRepositoryInterface
	txRunner TxRunner
	indexer  ChunkBuilder
	form     *form.Schema
	rewriter ContentRewriter
	uuidGen  UUIDGenerator
	logger   *zap.Logger
	now      func() time.Time
}

// ProfileServiceOption configures optional ProfileService collaborators.
type ProfileServiceOption func(*ProfileService)

// WithRewriter rewrites form content before indexing.
func WithRewriter(r ContentRewriter) ProfileServiceOption {
	return func(s *ProfileService) { s.rewriter = r }
}

// WithUUIDGenerator overrides ID generation.
func WithUUIDGenerator(g UUIDGenerator) ProfileServiceOption {
	return func(s *ProfileService) { s.uuidGen = g }
}

// WithProfileLogger sets the logger.
func WithProfileLogger(l *zap.Logger) ProfileServiceOption {
	return func(s *ProfileService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(
	profiles ProfileRepositoryInterface,
	txRunner TxRunner,
	indexer ChunkBuilder,
	schema *form.Schema,
	opts ...ProfileServiceOption,
) *ProfileService {
	if schema == nil {
		schema = form.Default()
	}
	s := &ProfileService{
		profiles: profiles,
		txRunner: txRunner,
		indexer:  indexer,
		form:     schema,
		uuidGen:  &DefaultUUIDGenerator{},
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Form returns the form members answer.
func (s *ProfileService) Form() *form.Schema {
	return s.form
}

// ProfileSubmission is a completed form.
type ProfileSubmission struct {
	ProfileID string
	Name      string
	Answers   []domain.ProfileAnswer
	// Social replaces stored handles when set.
	Social *domain.SocialHandles
}

// Create registers a new profile with empty content.
func (s *ProfileService) Create(ctx context.Context, name, mail string) (*domain.Profile, error) {
	profile := domain.NewProfile(s.uuidGen.NewString(), strings.TrimSpace(name), mail, s.now())
	if err := domain.ValidateProfile(profile); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	_, err := s.profiles.GetByMail(ctx, profile.Mail)
	if err == nil {
		return nil, domain.ErrProfileAlreadyExists
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Get returns a profile by ID.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "profile ID is required")
	}
	return s.profiles.GetByID(ctx, id)
}

// Submit validates form answers, rebuilds content and re-indexes the profile
// when its answers changed. The profile row and its chunks are written in
// one transaction.
func (s *ProfileService) Submit(ctx context.Context, in ProfileSubmission) (*domain.Profile, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Submit", telemetry.SpanAttributes{
		ProfileID: in.ProfileID,
		Operation: "submit",
	})
	defer span.End()

	profile, err := s.Get(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}

	raw, answers, err := s.form.BuildContent(in.Answers)
	if err != nil {
		return nil, err
	}

	// Same answers as last time: keep content and chunks.
	base := profile.Content
	changed := !profile.HasContent() || form.RenderContent(profile.Answers) != raw
	content := base
	if changed {
		content = raw
		if s.rewriter != nil {
			content = s.rewriter.Rewrite(ctx, raw)
		}
	}

	profile.Answers = answers
	if name := strings.TrimSpace(in.Name); name != "" {
		profile.Name = name
	}
	if in.Social != nil {
		profile.Social = in.Social.Normalize()
	}

	if err := s.save(ctx, profile, base, content, changed); err != nil {
		span.SetError(err)
		return nil, err
	}
	return profile, nil
}

// UpdateContent replaces a profile's content directly, bypassing the form.
func (s *ProfileService) UpdateContent(ctx context.Context, profileID, content string, social *domain.SocialHandles) (*domain.Profile, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.UpdateContent", telemetry.SpanAttributes{
		ProfileID: profileID,
		Operation: "update_content",
	})
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}

	base := profile.Content
	changed := content != base
	if changed {
		profile.Answers = nil
	}
	if social != nil {
		profile.Social = social.Normalize()
	}

	if err := s.save(ctx, profile, base, content, changed); err != nil {
		span.SetError(err)
		return nil, err
	}
	return profile, nil
}

// Reindex regenerates the chunks of a profile from its stored content.
func (s *ProfileService) Reindex(ctx context.Context, profileID string) (int, error) {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return 0, err
	}

	chunks, err := s.indexer.BuildChunks(ctx, profile.ID, profile.Content)
	if err != nil {
		return 0, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := checkContent(ctx, repos, profile.ID, profile.Content); err != nil {
			return err
		}
		return repos.Chunks().ReplaceChunks(ctx, profile.ID, chunks)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("profile reindexed", zap.String("profile_id", profile.ID), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// save embeds first so a provider failure leaves the stored profile
// untouched. base is the content the caller read; the write is rejected if
// the stored content no longer matches it. Unchanged content only rewrites
// the profile details and keeps the existing chunks.
func (s *ProfileService) save(ctx context.Context, profile *domain.Profile, base, content string, changed bool) error {
	var chunks []domain.ProfileChunk
	if changed {
		var err error
		chunks, err = s.indexer.BuildChunks(ctx, profile.ID, content)
		if err != nil {
			s.logger.Error("profile indexing failed",
				zap.String("profile_id", profile.ID),
				zap.String("stage", "embed"),
				zap.Error(err),
			)
			return err
		}
	}

	profile.Content = content
	profile.UpdatedAt = s.now()

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := checkContent(ctx, repos, profile.ID, base); err != nil {
			return err
		}
		if !changed {
			return repos.Profiles().UpdateDetails(ctx, profile)
		}
		if err := repos.Profiles().Update(ctx, profile); err != nil {
			return err
		}
		return repos.Chunks().ReplaceChunks(ctx, profile.ID, chunks)
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileContentConflict) {
			s.logger.Warn("profile write lost a race", zap.String("profile_id", profile.ID))
		}
		return err
	}

	if changed {
		s.logger.Info("profile indexed", zap.String("profile_id", profile.ID), zap.Int("chunks", len(chunks)))
	}
	return nil
}

// checkContent locks the profile row and fails when its content differs from
// the content the pending write was prepared against.
func checkContent(ctx context.Context, repos TxRepositories, profileID, want string) error {
	current, err := repos.Profiles().LockContent(ctx, profileID)
	if err != nil {
		return err
	}
	if current != want {
		return domain.ErrProfileContentConflict
	}
	return nil
}
