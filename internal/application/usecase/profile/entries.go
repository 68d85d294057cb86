package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/pkg/apperror"
)

type AddExperienceInput struct {
	UserID      uuid.UUID
	Title       string
	Company     string
	Location    string
	From        time.Time
	To          *time.Time
	Current     bool
	Description string
}

func (in AddExperienceInput) validate() error {
	var fields []apperror.FieldError
	if in.Title == "" {
		fields = append(fields, bodyField("title", in.Title, "Title is required"))
	}
	if in.Company == "" {
		fields = append(fields, bodyField("company", in.Company, "Company is required"))
	}
	if in.From.IsZero() {
		fields = append(fields, bodyField("from", "", "Start Date is required"))
	}
	if len(fields) > 0 {
		return apperror.NewValidation(fields...)
	}
	return nil
}

type AddEducationInput struct {
	UserID       uuid.UUID
	School       string
	Degree       string
	FieldOfStudy string
	Location     string
	From         time.Time
	To           *time.Time
	Current      bool
	Description  string
}

func (in AddEducationInput) validate() error {
	var fields []apperror.FieldError
	if in.School == "" {
		fields = append(fields, bodyField("school", in.School, "School is required"))
	}
	if in.Degree == "" {
		fields = append(fields, bodyField("degree", in.Degree, "Degree is required"))
	}
	if in.FieldOfStudy == "" {
		fields = append(fields, bodyField("fieldOfStudy", in.FieldOfStudy, "Field of study is required"))
	}
	if in.From.IsZero() {
		fields = append(fields, bodyField("from", "", "Start Date is required"))
	}
	if len(fields) > 0 {
		return apperror.NewValidation(fields...)
	}
	return nil
}

func (uc *ProfileUseCase) AddExperience(ctx context.Context, in AddExperienceInput) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "AddExperience")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	entry := profile.Experience{
		ID:          uuid.New(),
		Title:       in.Title,
		Company:     in.Company,
		Location:    in.Location,
		From:        in.From,
		To:          in.To,
		Current:     in.Current,
		Description: in.Description,
	}
	span.SetAttributes(attribute.String("entry_id", entry.ID.String()))

	return uc.editEntries(ctx, in.UserID, func(p *profile.Profile) bool {
		p.AddExperience(entry)
		return true
	})
}

// RemoveExperience drops one experience entry. An id that matches nothing,
// malformed ones included, leaves the profile as it is.
func (uc *ProfileUseCase) RemoveExperience(ctx context.Context, userID uuid.UUID, rawEntryID string) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "RemoveExperience")
	defer span.End()

	entryID, parseErr := uuid.Parse(rawEntryID)
	return uc.editEntries(ctx, userID, func(p *profile.Profile) bool {
		return parseErr == nil && p.RemoveExperience(entryID)
	})
}

func (uc *ProfileUseCase) AddEducation(ctx context.Context, in AddEducationInput) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "AddEducation")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	entry := profile.Education{
		ID:           uuid.New(),
		School:       in.School,
		Degree:       in.Degree,
		FieldOfStudy: in.FieldOfStudy,
		Location:     in.Location,
		From:         in.From,
		To:           in.To,
		Current:      in.Current,
		Description:  in.Description,
	}
	span.SetAttributes(attribute.String("entry_id", entry.ID.String()))

	return uc.editEntries(ctx, in.UserID, func(p *profile.Profile) bool {
		p.AddEducation(entry)
		return true
	})
}

func (uc *ProfileUseCase) RemoveEducation(ctx context.Context, userID uuid.UUID, rawEntryID string) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "RemoveEducation")
	defer span.End()

	entryID, parseErr := uuid.Parse(rawEntryID)
	return uc.editEntries(ctx, userID, func(p *profile.Profile) bool {
		return parseErr == nil && p.RemoveEducation(entryID)
	})
}

// editEntries runs a load-mutate-save cycle on the caller's sub-collections
// under the per-user lock. A caller without a profile gets the same not-found
// error as GetOwnProfile. Nothing is written when edit reports no change.
func (uc *ProfileUseCase) editEntries(ctx context.Context, userID uuid.UUID, edit func(p *profile.Profile) bool) (*profile.Profile, error) {
	unlock, err := uc.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := uc.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, errNoProfile(userID)
		}
		return nil, err
	}

	if !edit(p) {
		return p, nil
	}

	p.UpdatedAt = uc.now()
	if err := uc.profileRepo.SaveEntries(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
