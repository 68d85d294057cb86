package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/logger"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// profileColumns maps optional scalar field names onto their columns.
var profileColumns = map[string]string{
	"company":        "company",
	"location":       "location",
	"bio":            "bio",
	"website":        "website",
	"githubUserName": "github_username",
}

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, log logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: log}
}

func selectProfiles() sq.SelectBuilder {
	return psql.Select(
		"p.id", "p.user_id", "p.status", "p.skills", "p.company", "p.location",
		"p.bio", "p.website", "p.github_username", "p.social", "p.experience",
		"p.education", "p.created_at", "p.updated_at",
		"u.id IS NOT NULL", "COALESCE(u.name, '')", "COALESCE(u.avatar, '')",
	).
		From("profiles p").
		LeftJoin("users u ON u.id = p.user_id")
}

func (r *postgresProfileRepo) scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	var socialBytes, experienceBytes, educationBytes []byte
	var hasOwner bool
	var ownerName, ownerAvatar string

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Status,
		&p.Skills,
		&p.Company,
		&p.Location,
		&p.Bio,
		&p.Website,
		&p.GithubUserName,
		&socialBytes,
		&experienceBytes,
		&educationBytes,
		&p.CreatedAt,
		&p.UpdatedAt,
		&hasOwner,
		&ownerName,
		&ownerAvatar,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile row: %w", err)
	}

	if hasOwner {
		p.Owner = &user.Owner{ID: p.UserID, Name: ownerName, Avatar: ownerAvatar}
	}

	if err := json.Unmarshal(socialBytes, &p.Social); err != nil {
		r.logger.Warn("Failed to unmarshal social", zap.String("user_id", p.UserID.String()), zap.Error(err))
		p.Social = profile.Social{}
	}
	if err := json.Unmarshal(experienceBytes, &p.Experience); err != nil || p.Experience == nil {
		p.Experience = []profile.Experience{}
	}
	if err := json.Unmarshal(educationBytes, &p.Education); err != nil || p.Education == nil {
		p.Education = []profile.Education{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}

func (r *postgresProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	query, args, err := selectProfiles().Where(sq.Eq{"p.user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile query: %w", err)
	}
	return r.scanProfile(r.db.QueryRow(ctx, query, args...))
}

func (r *postgresProfileRepo) List(ctx context.Context) ([]*profile.Profile, error) {
	query, args, err := selectProfiles().OrderBy("p.created_at ASC", "p.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*profile.Profile, 0)
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return profiles, nil
}

func (r *postgresProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	socialBytes, err := json.Marshal(p.Social)
	if err != nil {
		return fmt.Errorf("failed to marshal social: %w", err)
	}
	experienceBytes, err := json.Marshal(p.Experience)
	if err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}
	educationBytes, err := json.Marshal(p.Education)
	if err != nil {
		return fmt.Errorf("failed to marshal education: %w", err)
	}

	query := `
		INSERT INTO profiles (id, user_id, status, skills, company, location, bio, website,
			github_username, social, experience, education, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.Exec(ctx, query,
		p.ID, p.UserID, p.Status, p.Skills, p.Company, p.Location, p.Bio, p.Website,
		p.GithubUserName, socialBytes, experienceBytes, educationBytes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("profile for user %s already exists: %w", p.UserID, err)
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Merge issues a single UPDATE naming only the columns in the field set.
func (r *postgresProfileRepo) Merge(ctx context.Context, userID uuid.UUID, f profile.Fields, updatedAt time.Time) (*profile.Profile, error) {
	socialBytes, err := json.Marshal(f.Social)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal social: %w", err)
	}

	set := map[string]any{
		"status":     f.Status,
		"skills":     f.Skills,
		"social":     socialBytes,
		"updated_at": updatedAt,
	}
	for key, value := range f.OptionalScalars() {
		set[profileColumns[key]] = value
	}

	query, args, err := psql.Update("profiles").
		SetMap(set).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile update: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, profile.ErrProfileNotFound
	}
	return r.FindByUserID(ctx, userID)
}

func (r *postgresProfileRepo) SaveEntries(ctx context.Context, p *profile.Profile) error {
	experienceBytes, err := json.Marshal(p.Experience)
	if err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}
	educationBytes, err := json.Marshal(p.Education)
	if err != nil {
		return fmt.Errorf("failed to marshal education: %w", err)
	}

	query := `
		UPDATE profiles SET experience = $2, education = $3, updated_at = $4
		WHERE user_id = $1
	`
	cmdTag, err := r.db.Exec(ctx, query, p.UserID, experienceBytes, educationBytes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile entries: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return profile.ErrProfileNotFound
	}
	return nil
}

func (r *postgresProfileRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
