package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/devconnector/internal/domain/user"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
)

type Social struct {
	YouTube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

type Experience struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

type Education struct {
	ID           uuid.UUID  `json:"id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldOfStudy"`
	Location     string     `json:"location,omitempty"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description,omitempty"`
}

type Profile struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"-"`
	Owner          *user.Owner  `json:"user,omitempty"`
	Status         string       `json:"status"`
	Skills         []string     `json:"skills"`
	Company        string       `json:"company,omitempty"`
	Location       string       `json:"location,omitempty"`
	Bio            string       `json:"bio,omitempty"`
	Website        string       `json:"website,omitempty"`
	GithubUserName string       `json:"githubUserName,omitempty"`
	Social         Social       `json:"social"`
	Experience     []Experience `json:"experience"`
	Education      []Education  `json:"education"`
	CreatedAt      time.Time    `json:"date"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Fields is what an upsert writes. Status, Skills and Social are always
// written; an empty optional scalar is not part of the set and leaves the
// stored value alone.
type Fields struct {
	Status         string
	Skills         []string
	Company        string
	Location       string
	Bio            string
	Website        string
	GithubUserName string
	Social         Social
}

// ParseSkills splits a comma separated list, trimming every element. Order is
// kept and nothing is deduplicated.
func ParseSkills(raw string) []string {
	parts := strings.Split(raw, ",")
	skills := make([]string, len(parts))
	for i, p := range parts {
		skills[i] = strings.TrimSpace(p)
	}
	return skills
}

// OptionalScalars returns the optional scalar fields present in the set,
// keyed by their JSON name.
func (f Fields) OptionalScalars() map[string]string {
	out := make(map[string]string, 5)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("company", f.Company)
	set("location", f.Location)
	set("bio", f.Bio)
	set("website", f.Website)
	set("githubUserName", f.GithubUserName)
	return out
}

// Apply merges the field set into p without touching anything outside it.
func (f Fields) Apply(p *Profile) {
	p.Status = f.Status
	p.Skills = append([]string(nil), f.Skills...)
	p.Social = f.Social
	for key, value := range f.OptionalScalars() {
		switch key {
		case "company":
			p.Company = value
		case "location":
			p.Location = value
		case "bio":
			p.Bio = value
		case "website":
			p.Website = value
		case "githubUserName":
			p.GithubUserName = value
		}
	}
}

func New(userID uuid.UUID, f Fields, now time.Time) *Profile {
	p := &Profile{
		ID:         uuid.New(),
		UserID:     userID,
		Experience: []Experience{},
		Education:  []Education{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.Apply(p)
	return p
}

// AddExperience puts e in front; the newest entry always comes first.
func (p *Profile) AddExperience(e Experience) {
	p.Experience = prepend(p.Experience, e)
}

// RemoveExperience drops the entry with the given id. An unknown id leaves the
// list untouched and reports false.
func (p *Profile) RemoveExperience(id uuid.UUID) bool {
	var removed bool
	p.Experience, removed = removeByID(p.Experience, id, func(e Experience) uuid.UUID { return e.ID })
	return removed
}

func (p *Profile) AddEducation(e Education) {
	p.Education = prepend(p.Education, e)
}

func (p *Profile) RemoveEducation(id uuid.UUID) bool {
	var removed bool
	p.Education, removed = removeByID(p.Education, id, func(e Education) uuid.UUID { return e.ID })
	return removed
}

func prepend[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

func removeByID[T any](items []T, id uuid.UUID, idOf func(T) uuid.UUID) ([]T, bool) {
	idx := -1
	for i, item := range items {
		if idOf(item) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...), true
}

type Repository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// Merge writes only the given field set onto the stored profile and
	// returns the result with its owner joined.
	Merge(ctx context.Context, userID uuid.UUID, f Fields, updatedAt time.Time) (*Profile, error)
	// SaveEntries persists the experience and education lists of p.
	SaveEntries(ctx context.Context, p *Profile) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
