package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/khoahotran/devconnector/internal/domain/profile"
)

func TestProfileDoc_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.AddDate(1, 0, 0)

	p := profile.New(uuid.New(), profile.Fields{
		Status:         "Developer",
		Skills:         []string{"go", "", "sql"},
		Company:        "Acme",
		GithubUserName: "octocat",
		Social:         profile.Social{LinkedIn: "in/ana"},
	}, now)
	p.AddExperience(profile.Experience{ID: uuid.New(), Title: "Dev", Company: "Acme", From: now, To: &end})
	p.AddEducation(profile.Education{ID: uuid.New(), School: "MIT", Degree: "BSc", FieldOfStudy: "CS", From: now, Current: true})

	doc := toProfileDoc(p)
	assert.Equal(t, p.UserID.String(), doc.UserID)
	assert.Equal(t, "octocat", doc.GithubUserName)

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestProfileDoc_MalformedIDs(t *testing.T) {
	_, err := profileDoc{ID: "nope", UserID: uuid.NewString()}.toDomain()
	assert.Error(t, err)

	_, err = profileDoc{ID: uuid.NewString(), UserID: "nope"}.toDomain()
	assert.Error(t, err)

	_, err = profileDoc{ID: uuid.NewString(), UserID: uuid.NewString(), Experience: []experienceDoc{{ID: "bad"}}}.toDomain()
	assert.Error(t, err)
}

func TestMergeUpdate_OnlyWritesFieldSet(t *testing.T) {
	updatedAt := time.Now().UTC()
	update := mergeUpdate(profile.Fields{
		Status:   "Lead",
		Skills:   []string{"rust"},
		Location: "Hanoi",
		Social:   profile.Social{Twitter: "t"},
	}, updatedAt)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "Lead", set["status"])
	assert.Equal(t, []string{"rust"}, set["skills"])
	assert.Equal(t, "Hanoi", set["location"])
	assert.Equal(t, socialDoc{Twitter: "t"}, set["social"])
	assert.Equal(t, updatedAt, set["updatedAt"])

	for _, key := range []string{"company", "bio", "website", "githubusername", "experience", "education"} {
		assert.NotContains(t, set, key)
	}
}

func TestMergeUpdate_GithubUserNameKey(t *testing.T) {
	update := mergeUpdate(profile.Fields{Status: "s", Skills: []string{"k"}, GithubUserName: "octocat"}, time.Now())
	set := update["$set"].(bson.M)
	assert.Equal(t, "octocat", set["githubusername"])
}
