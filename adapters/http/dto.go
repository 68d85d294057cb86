package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
)

// Auth DTOs

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

var registerMessages = map[string]string{
	"name":     "Name is required",
	"email":    "Not valid email address",
	"password": "Please enter a password with 6 or more characters",
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

var loginMessages = map[string]string{
	"email":    "Please include a valid email",
	"password": "Password is required",
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserDTO struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar string    `json:"avatar"`
	Date   time.Time `json:"date"`
}

func ToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Date:   u.CreatedAt,
	}
}

// Profile DTOs

// skillsField accepts the comma separated string clients send, and also a
// JSON array, which is joined back into that form.
type skillsField string

func (s *skillsField) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = skillsField(strings.Join(list, ","))
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = skillsField(raw)
	return nil
}

type UpsertProfileRequest struct {
	Status         string      `json:"status"`
	Skills         skillsField `json:"skills"`
	Company        string      `json:"company"`
	Location       string      `json:"location"`
	Bio            string      `json:"bio"`
	Website        string      `json:"website"`
	GithubUserName string      `json:"githubUserName"`
	YouTube        string      `json:"youtube"`
	Twitter        string      `json:"twitter"`
	Facebook       string      `json:"facebook"`
	LinkedIn       string      `json:"linkedin"`
	Instagram      string      `json:"instagram"`
}

type AddExperienceRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type AddEducationRequest struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	Location     string `json:"location"`
	From         string `json:"from"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseRange reads the from/to pair of an entry. An empty from is left zero
// for the use case to reject; an empty to means "no end date".
func parseRange(rawFrom, rawTo string) (time.Time, *time.Time, error) {
	var fields []apperror.FieldError
	var from time.Time
	var to *time.Time

	if rawFrom != "" {
		t, ok := parseDate(rawFrom)
		if !ok {
			fields = append(fields, apperror.FieldError{Value: rawFrom, Msg: "Start Date is not a valid date", Param: "from", Location: "body"})
		}
		from = t
	}
	if rawTo != "" {
		t, ok := parseDate(rawTo)
		if !ok {
			fields = append(fields, apperror.FieldError{Value: rawTo, Msg: "End Date is not a valid date", Param: "to", Location: "body"})
		}
		to = &t
	}
	if len(fields) > 0 {
		return time.Time{}, nil, apperror.NewValidation(fields...)
	}
	return from, to, nil
}

type OwnerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type SocialDTO struct {
	YouTube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

type ExperienceDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

type EducationDTO struct {
	ID           string     `json:"id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldOfStudy"`
	Location     string     `json:"location,omitempty"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description,omitempty"`
}

type ProfileDTO struct {
	ID             string          `json:"id"`
	User           *OwnerDTO       `json:"user"`
	Status         string          `json:"status"`
	Skills         []string        `json:"skills"`
	Company        string          `json:"company,omitempty"`
	Location       string          `json:"location,omitempty"`
	Bio            string          `json:"bio,omitempty"`
	Website        string          `json:"website,omitempty"`
	GithubUserName string          `json:"githubUserName,omitempty"`
	Social         SocialDTO       `json:"social"`
	Experience     []ExperienceDTO `json:"experience"`
	Education      []EducationDTO  `json:"education"`
	Date           time.Time       `json:"date"`
}

func ToProfileDTO(p *profile.Profile) ProfileDTO {
	dto := ProfileDTO{
		ID:             p.ID.String(),
		Status:         p.Status,
		Skills:         p.Skills,
		Company:        p.Company,
		Location:       p.Location,
		Bio:            p.Bio,
		Website:        p.Website,
		GithubUserName: p.GithubUserName,
		Social:         SocialDTO(p.Social),
		Date:           p.CreatedAt,
	}
	if dto.Skills == nil {
		dto.Skills = []string{}
	}
	if p.Owner != nil {
		dto.User = &OwnerDTO{ID: p.Owner.ID.String(), Name: p.Owner.Name, Avatar: p.Owner.Avatar}
	}

	dto.Experience = make([]ExperienceDTO, len(p.Experience))
	for i, e := range p.Experience {
		dto.Experience[i] = ExperienceDTO{
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

	dto.Education = make([]EducationDTO, len(p.Education))
	for i, e := range p.Education {
		dto.Education[i] = EducationDTO{
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
	return dto
}

func ToProfileDTOs(profiles []*profile.Profile) []ProfileDTO {
	dtos := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = ToProfileDTO(p)
	}
	return dtos
}

// GitHub DTOs

type RepoDTO struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Description     string    `json:"description"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	WatchersCount   int       `json:"watchers_count"`
	ForksCount      int       `json:"forks_count"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToRepoDTOs(repos []github.Repo) []RepoDTO {
	dtos := make([]RepoDTO, len(repos))
	for i, r := range repos {
		dtos[i] = RepoDTO{
			Name:            r.Name,
			FullName:        r.FullName,
			HTMLURL:         r.HTMLURL,
			Description:     r.Description,
			Language:        r.Language,
			StargazersCount: r.StargazersCount,
			WatchersCount:   r.WatchersCount,
			ForksCount:      r.ForksCount,
			CreatedAt:       r.CreatedAt,
		}
	}
	return dtos
}
