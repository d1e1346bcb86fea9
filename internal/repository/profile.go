package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `p.id, p.name, p.mail, p.content, p.answers, p.social_x, p.social_telegram, p.social_instagram, p.created_at, p.updated_at`

type ProfilePageResult = pagination.Page[*domain.Profile]

type ProfileRepository struct {
	db dbtx
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: pool}
}

func NewProfileRepositoryWithTx(tx pgx.Tx) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	answers, err := encodeAnswers(p.Answers)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO profiles (id, name, mail, content, answers, social_x, social_telegram, social_instagram, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Mail, p.Content, answers,
		nullableString(p.Social.X), nullableString(p.Social.Telegram), nullableString(p.Social.Instagram),
		p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrProfileAlreadyExists
	}
	return err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if !validID(id) {
		return nil, domain.ErrProfileNotFound
	}
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles p WHERE p.id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) GetByMail(ctx context.Context, mail string) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles p WHERE p.mail = $1`,
		domain.NormalizeMail(mail),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByIDs returns the profiles that exist among ids, in no particular order.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*domain.Profile{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles p WHERE p.id = ANY($1::uuid[])`,
		valid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfileRows(rows)
}

func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	answers, err := encodeAnswers(p.Answers)
	if err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE profiles
		 SET name = $1, content = $2, answers = $3, social_x = $4, social_telegram = $5, social_instagram = $6, updated_at = $7
		 WHERE id = $8`,
		p.Name, p.Content, answers,
		nullableString(p.Social.X), nullableString(p.Social.Telegram), nullableString(p.Social.Instagram),
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// UpdateDetails writes name, answers and social handles, leaving content
// untouched.
func (r *ProfileRepository) UpdateDetails(ctx context.Context, p *domain.Profile) error {
	answers, err := encodeAnswers(p.Answers)
	if err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE profiles
		 SET name = $1, answers = $2, social_x = $3, social_telegram = $4, social_instagram = $5, updated_at = $6
		 WHERE id = $7`,
		p.Name, answers,
		nullableString(p.Social.X), nullableString(p.Social.Telegram), nullableString(p.Social.Instagram),
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// LockContent returns the stored content and holds a row lock on the profile
// until the surrounding transaction ends. Outside a transaction the lock is
// released immediately.
func (r *ProfileRepository) LockContent(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", domain.ErrProfileNotFound
	}
	var content string
	err := r.db.QueryRow(ctx, `SELECT content FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrProfileNotFound
	}
	return content, err
}

// ListEligibleProfiles returns the profiles with content whose membership in
// workspaceID is active or admin, oldest first.
func (r *ProfileRepository) ListEligibleProfiles(ctx context.Context, workspaceID string) ([]*domain.Profile, error) {
	if !validID(workspaceID) {
		return []*domain.Profile{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles p
		 JOIN workspace_members wm ON wm.profile_id = p.id
		 WHERE wm.workspace_id = $1
		   AND wm.status IN ('active', 'admin')
		   AND btrim(p.content) <> ''
		 ORDER BY p.created_at, p.id`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfileRows(rows)
}

func (r *ProfileRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*ProfilePageResult, error) {
	limit = pagination.Limit(limit)

	query := `SELECT ` + profileColumns + ` FROM profiles p`
	args := []any{}
	if cursor != nil {
		query += ` WHERE (p.created_at, p.id) < ($1, $2)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanProfileRows(rows)
	if err != nil {
		return nil, err
	}
	return pagination.Trim(items, limit, profileKey), nil
}

func profileKey(p *domain.Profile) (string, time.Time) { return p.ID, p.CreatedAt }

func encodeAnswers(answers []domain.ProfileAnswer) ([]byte, error) {
	if answers == nil {
		answers = []domain.ProfileAnswer{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	return data, nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var answers []byte
	var x, telegram, instagram *string
	if err := row.Scan(&p.ID, &p.Name, &p.Mail, &p.Content, &answers, &x, &telegram, &instagram, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &p.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers of profile %s: %w", p.ID, err)
		}
	}
	if len(p.Answers) == 0 {
		p.Answers = nil
	}
	p.Social = domain.SocialHandles{
		X:         stringValue(x),
		Telegram:  stringValue(telegram),
		Instagram: stringValue(instagram),
	}
	return &p, nil
}

func scanProfileRows(rows pgx.Rows) ([]*domain.Profile, error) {
	profiles := []*domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
