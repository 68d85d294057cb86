package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/application/service"
	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const (
	MsgNoProfile       = "There is no profile for this user"
	MsgProfileNotFound = "Profile not found"
)

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	profileRepo profile.Repository
	userRepo    user.Repository
	locker      service.Locker
	events      service.EventPublisher
	logger      logger.Logger
	now         func() time.Time
}

// NewProfileUseCase wires the profile manager. events may be nil, in which
// case nothing is published.
func NewProfileUseCase(pRepo profile.Repository, uRepo user.Repository, locker service.Locker, events service.EventPublisher, log logger.Logger) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: pRepo,
		userRepo:    uRepo,
		locker:      locker,
		events:      events,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func errNoProfile(userID uuid.UUID) error {
	return apperror.NewAppError(apperror.ErrNotFound, MsgNoProfile, "no profile for user "+userID.String(), nil)
}

func errProfileNotFound(identifier string) error {
	return apperror.NewAppError(apperror.ErrNotFound, MsgProfileNotFound, "no profile for user "+identifier, nil)
}

func (uc *ProfileUseCase) GetOwnProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "GetOwnProfile")
	defer span.End()

	p, err := uc.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, errNoProfile(userID)
		}
		span.RecordError(err)
		return nil, err
	}
	return p, nil
}

func (uc *ProfileUseCase) ListProfiles(ctx context.Context) ([]*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "ListProfiles")
	defer span.End()

	profiles, err := uc.profileRepo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("profiles.count", len(profiles)))
	return profiles, nil
}

// GetProfileByUserID looks up a public profile. An id that is not even a
// well-formed UUID is reported as not found rather than as a server error.
func (uc *ProfileUseCase) GetProfileByUserID(ctx context.Context, rawUserID string) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "GetProfileByUserID")
	defer span.End()

	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, errProfileNotFound(rawUserID)
	}

	p, err := uc.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, errProfileNotFound(rawUserID)
		}
		span.RecordError(err)
		return nil, err
	}
	return p, nil
}

type UpsertProfileInput struct {
	UserID         uuid.UUID
	Status         string
	Skills         string
	Company        string
	Location       string
	Bio            string
	Website        string
	GithubUserName string
	YouTube        string
	Twitter        string
	Facebook       string
	LinkedIn       string
	Instagram      string
}

// validate only requires the fields to be present. A blank value such as " "
// is accepted.
func (in UpsertProfileInput) validate() error {
	var fields []apperror.FieldError
	if in.Status == "" {
		fields = append(fields, bodyField("status", in.Status, "Status should be mentioned"))
	}
	if in.Skills == "" {
		fields = append(fields, bodyField("skills", in.Skills, "Skillset cannot be empty"))
	}
	if len(fields) > 0 {
		return apperror.NewValidation(fields...)
	}
	return nil
}

func (in UpsertProfileInput) fields() profile.Fields {
	return profile.Fields{
		Status:         in.Status,
		Skills:         profile.ParseSkills(in.Skills),
		Company:        in.Company,
		Location:       in.Location,
		Bio:            in.Bio,
		Website:        in.Website,
		GithubUserName: in.GithubUserName,
		Social: profile.Social{
			YouTube:   in.YouTube,
			Twitter:   in.Twitter,
			Facebook:  in.Facebook,
			LinkedIn:  in.LinkedIn,
			Instagram: in.Instagram,
		},
	}
}

// UpsertProfile creates the caller's profile or merges the field set into the
// existing one. Repeating a call with the same input yields the same document.
func (uc *ProfileUseCase) UpsertProfile(ctx context.Context, in UpsertProfileInput) (*profile.Profile, error) {
	ctx, span := tracer.Start(ctx, "UpsertProfile", trace.WithAttributes(attribute.String("user_id", in.UserID.String())))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	fields := in.fields()

	unlock, err := uc.lock(ctx, in.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer unlock()

	now := uc.now()
	var p *profile.Profile

	_, err = uc.profileRepo.FindByUserID(ctx, in.UserID)
	switch {
	case err == nil:
		p, err = uc.profileRepo.Merge(ctx, in.UserID, fields, now)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	case errors.Is(err, profile.ErrProfileNotFound):
		if err := uc.requireAccount(ctx, in.UserID); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := uc.profileRepo.Create(ctx, profile.New(in.UserID, fields, now)); err != nil {
			span.RecordError(err)
			return nil, err
		}
		p, err = uc.profileRepo.FindByUserID(ctx, in.UserID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		span.RecordError(err)
		return nil, err
	}

	uc.publish(service.ProfileEvent{
		EventType:      service.ProfileEventTypeUpserted,
		UserID:         p.UserID,
		GithubUserName: p.GithubUserName,
		OccurredAt:     now,
	})
	return p, nil
}

// DeleteOwnProfile removes the profile and then the account itself. The two
// deletes are not atomic: when the second one fails the account is left
// without a profile and the error is reported.
func (uc *ProfileUseCase) DeleteOwnProfile(ctx context.Context, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "DeleteOwnProfile", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	unlock, err := uc.lock(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer unlock()

	var githubUserName string
	if p, err := uc.profileRepo.FindByUserID(ctx, userID); err == nil {
		githubUserName = p.GithubUserName
	}

	if err := uc.profileRepo.DeleteByUserID(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}

	if err := uc.userRepo.Delete(ctx, userID); err != nil && !errors.Is(err, user.ErrUserNotFound) {
		uc.logger.Error("Profile deleted but account removal failed", err, zap.String("user_id", userID.String()))
		span.RecordError(err)
		return err
	}

	uc.publish(service.ProfileEvent{
		EventType:      service.ProfileEventTypeAccountDeleted,
		UserID:         userID,
		GithubUserName: githubUserName,
		OccurredAt:     uc.now(),
	})
	return nil
}

// requireAccount rejects callers whose account was deleted while their token
// is still valid, so no profile is created without an owner.
func (uc *ProfileUseCase) requireAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := uc.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperror.NewUnauthorized("account "+userID.String()+" no longer exists", nil)
		}
		return err
	}
	return nil
}

func (uc *ProfileUseCase) lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	unlock, err := uc.locker.Lock(ctx, "profile:"+userID.String())
	if err != nil {
		return nil, apperror.NewInternal("failed to acquire profile lock", err)
	}
	return unlock, nil
}

func (uc *ProfileUseCase) publish(evt service.ProfileEvent) {
	if uc.events == nil {
		return
	}
	go func() {
		if err := uc.events.PublishProfileEvent(context.Background(), evt); err != nil {
			uc.logger.Error("Failed to publish profile event", err,
				zap.String("event_type", evt.EventType),
				zap.String("user_id", evt.UserID.String()))
		}
	}()
}

func bodyField(param string, value any, msg string) apperror.FieldError {
	return apperror.FieldError{Value: value, Msg: msg, Param: param, Location: "body"}
}
