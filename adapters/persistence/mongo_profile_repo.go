package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/logger"
)

// profileKeys maps optional scalar field names onto document keys.
var profileKeys = map[string]string{
	"company":        "company",
	"location":       "location",
	"bio":            "bio",
	"website":        "website",
	"githubUserName": "githubusername",
}

type socialDoc struct {
	YouTube   string `bson:"youtube,omitempty"`
	Twitter   string `bson:"twitter,omitempty"`
	Facebook  string `bson:"facebook,omitempty"`
	LinkedIn  string `bson:"linkedin,omitempty"`
	Instagram string `bson:"instagram,omitempty"`
}

type experienceDoc struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Company     string     `bson:"company"`
	Location    string     `bson:"location,omitempty"`
	From        time.Time  `bson:"from"`
	To          *time.Time `bson:"to,omitempty"`
	Current     bool       `bson:"current"`
	Description string     `bson:"description,omitempty"`
}

type educationDoc struct {
	ID           string     `bson:"_id"`
	School       string     `bson:"school"`
	Degree       string     `bson:"degree"`
	FieldOfStudy string     `bson:"fieldofstudy"`
	Location     string     `bson:"location,omitempty"`
	From         time.Time  `bson:"from"`
	To           *time.Time `bson:"to,omitempty"`
	Current      bool       `bson:"current"`
	Description  string     `bson:"description,omitempty"`
}

type profileDoc struct {
	ID             string          `bson:"_id"`
	UserID         string          `bson:"user"`
	Status         string          `bson:"status"`
	Skills         []string        `bson:"skills"`
	Company        string          `bson:"company,omitempty"`
	Location       string          `bson:"location,omitempty"`
	Bio            string          `bson:"bio,omitempty"`
	Website        string          `bson:"website,omitempty"`
	GithubUserName string          `bson:"githubusername,omitempty"`
	Social         socialDoc       `bson:"social"`
	Experience     []experienceDoc `bson:"experience"`
	Education      []educationDoc  `bson:"education"`
	CreatedAt      time.Time       `bson:"date"`
	UpdatedAt      time.Time       `bson:"updatedAt"`
}

func toExperienceDocs(entries []profile.Experience) []experienceDoc {
	docs := make([]experienceDoc, len(entries))
	for i, e := range entries {
		docs[i] = experienceDoc{
			ID:          e.ID.String(),
			Title:       e.Title,
			Company:     e.Company,
			Location:    e.Location,
			From:        e.From,
			To:          e.To,
			Current:     e.Current,
			Description: e.Description,
		}
	}
	return docs
}

func toEducationDocs(entries []profile.Education) []educationDoc {
	docs := make([]educationDoc, len(entries))
	for i, e := range entries {
		docs[i] = educationDoc{
			ID:           e.ID.String(),
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			Location:     e.Location,
			From:         e.From,
			To:           e.To,
			Current:      e.Current,
			Description:  e.Description,
		}
	}
	return docs
}

func toProfileDoc(p *profile.Profile) profileDoc {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return profileDoc{
		ID:             p.ID.String(),
		UserID:         p.UserID.String(),
		Status:         p.Status,
		Skills:         skills,
		Company:        p.Company,
		Location:       p.Location,
		Bio:            p.Bio,
		Website:        p.Website,
		GithubUserName: p.GithubUserName,
		Social:         socialDoc(p.Social),
		Experience:     toExperienceDocs(p.Experience),
		Education:      toEducationDocs(p.Education),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (d profileDoc) toDomain() (*profile.Profile, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("stored profile has malformed id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("stored profile %s has malformed user id %q: %w", d.ID, d.UserID, err)
	}

	p := &profile.Profile{
		ID:             id,
		UserID:         userID,
		Status:         d.Status,
		Skills:         d.Skills,
		Company:        d.Company,
		Location:       d.Location,
		Bio:            d.Bio,
		Website:        d.Website,
		GithubUserName: d.GithubUserName,
		Social:         profile.Social(d.Social),
		Experience:     make([]profile.Experience, 0, len(d.Experience)),
		Education:      make([]profile.Education, 0, len(d.Education)),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}

	for _, e := range d.Experience {
		entryID, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("stored experience has malformed id %q: %w", e.ID, err)
		}
		p.Experience = append(p.Experience, profile.Experience{
			ID:          entryID,
			Title:       e.Title,
			Company:     e.Company,
			Location:    e.Location,
			From:        e.From,
			To:          e.To,
			Current:     e.Current,
			Description: e.Description,
		})
	}
	for _, e := range d.Education {
		entryID, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("stored education has malformed id %q: %w", e.ID, err)
		}
		p.Education = append(p.Education, profile.Education{
			ID:           entryID,
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			Location:     e.Location,
			From:         e.From,
			To:           e.To,
			Current:      e.Current,
			Description:  e.Description,
		})
	}
	return p, nil
}

// mergeUpdate builds the $set document for a partial merge. Keys outside the
// field set are left out so the stored values survive.
func mergeUpdate(f profile.Fields, updatedAt time.Time) bson.M {
	skills := f.Skills
	if skills == nil {
		skills = []string{}
	}
	set := bson.M{
		"status":    f.Status,
		"skills":    skills,
		"social":    socialDoc(f.Social),
		"updatedAt": updatedAt,
	}
	for key, value := range f.OptionalScalars() {
		set[profileKeys[key]] = value
	}
	return bson.M{"$set": set}
}

type mongoProfileRepo struct {
	profiles *mongo.Collection
	users    *mongo.Collection
	logger   logger.Logger
}

func NewMongoProfileRepo(db *mongo.Database, log logger.Logger) profile.Repository {
	return &mongoProfileRepo{
		profiles: db.Collection(profilesCollection),
		users:    db.Collection(usersCollection),
		logger:   log,
	}
}

// owners loads name and avatar for the given user ids.
func (r *mongoProfileRepo) owners(ctx context.Context, userIDs []string) (map[string]userDoc, error) {
	opts := options.Find().SetProjection(bson.M{"name": 1, "avatar": 1})
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile owners: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode profile owners: %w", err)
	}

	out := make(map[string]userDoc, len(docs))
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

func attachOwner(p *profile.Profile, owners map[string]userDoc) {
	if d, ok := owners[p.UserID.String()]; ok {
		p.Owner = &user.Owner{ID: p.UserID, Name: d.Name, Avatar: d.Avatar}
	}
}

func (r *mongoProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	var doc profileDoc
	if err := r.profiles.FindOne(ctx, bson.M{"user": userID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	owners, err := r.owners(ctx, []string{doc.UserID})
	if err != nil {
		return nil, err
	}
	attachOwner(p, owners)
	return p, nil
}

func (r *mongoProfileRepo) List(ctx context.Context) ([]*profile.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.profiles.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	var docs []profileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}

	profiles := make([]*profile.Profile, 0, len(docs))
	userIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			r.logger.Warn("Skipping malformed profile document", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		profiles = append(profiles, p)
		userIDs = append(userIDs, d.UserID)
	}
	if len(profiles) == 0 {
		return profiles, nil
	}

	owners, err := r.owners(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		attachOwner(p, owners)
	}
	return profiles, nil
}

func (r *mongoProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	if _, err := r.profiles.InsertOne(ctx, toProfileDoc(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("profile for user %s already exists: %w", p.UserID, err)
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *mongoProfileRepo) Merge(ctx context.Context, userID uuid.UUID, f profile.Fields, updatedAt time.Time) (*profile.Profile, error) {
	res, err := r.profiles.UpdateOne(ctx, bson.M{"user": userID.String()}, mergeUpdate(f, updatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, profile.ErrProfileNotFound
	}
	return r.FindByUserID(ctx, userID)
}

func (r *mongoProfileRepo) SaveEntries(ctx context.Context, p *profile.Profile) error {
	update := bson.M{"$set": bson.M{
		"experience": toExperienceDocs(p.Experience),
		"education":  toEducationDocs(p.Education),
		"updatedAt":  p.UpdatedAt,
	}}
	res, err := r.profiles.UpdateOne(ctx, bson.M{"user": p.UserID.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to save profile entries: %w", err)
	}
	if res.MatchedCount == 0 {
		return profile.ErrProfileNotFound
	}
	return nil
}

func (r *mongoProfileRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.profiles.DeleteOne(ctx, bson.M{"user": userID.String()}); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
