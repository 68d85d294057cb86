package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/devconnector/adapters/persistence/memory"
	authUC "github.com/khoahotran/devconnector/internal/application/usecase/auth"
	githubUC "github.com/khoahotran/devconnector/internal/application/usecase/github"
	profileUC "github.com/khoahotran/devconnector/internal/application/usecase/profile"
	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/pkg/auth"
	"github.com/khoahotran/devconnector/pkg/keylock"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const testSecret = "router-test-secret"

type stubFetcher struct {
	repos map[string][]github.Repo
}

func (f *stubFetcher) ListRepos(_ context.Context, username string) ([]github.Repo, error) {
	repos, ok := f.repos[username]
	if !ok {
		return nil, github.ErrGithubProfileNotFound
	}
	return repos, nil
}

type errorBody struct {
	Errors []struct {
		Value    any    `json:"value"`
		Msg      string `json:"msg"`
		Param    string `json:"param"`
		Location string `json:"location"`
	} `json:"errors"`
}

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	jwtSvc *auth.JWTService
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	store := memory.NewStore()
	s.jwtSvc = auth.NewJWTService(testSecret, time.Hour)

	fetcher := &stubFetcher{repos: map[string][]github.Repo{
		"octocat": {{ID: 1, Name: "hello-world", FullName: "octocat/hello-world"}},
	}}

	s.router = NewRouter(RouterDeps{
		JWTService: s.jwtSvc,
		AuthHandler: NewAuthHandler(
			authUC.NewRegisterUseCase(store.Users(), s.jwtSvc, log),
			authUC.NewLoginUseCase(store.Users(), s.jwtSvc, log),
			authUC.NewCurrentUserUseCase(store.Users()),
			log,
		),
		ProfileHandler: NewProfileHandler(
			profileUC.NewProfileUseCase(store.Profiles(), store.Users(), keylock.New(), nil, log),
			log,
		),
		GithubHandler: NewGithubHandler(githubUC.NewGithubUseCase(fetcher, nil, log), log),
		Logger:        log,
	})
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(HeaderAuthToken, token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterTestSuite) register(name, email string) string {
	rr := s.do(http.MethodPost, "/api/users", "", gin.H{"name": name, "email": email, "password": "secret123"})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	var resp TokenResponse
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(s.T(), resp.Token)
	return resp.Token
}

func (s *RouterTestSuite) decodeErrors(rr *httptest.ResponseRecorder) errorBody {
	var body errorBody
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func (s *RouterTestSuite) decodeProfile(rr *httptest.ResponseRecorder) ProfileDTO {
	var dto ProfileDTO
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &dto), rr.Body.String())
	return dto
}

func (s *RouterTestSuite) userIDOf(token string) string {
	identity, err := s.jwtSvc.Verify(token)
	require.NoError(s.T(), err)
	return identity.UserID.String()
}

func (s *RouterTestSuite) TestHealth() {
	rr := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	assert.JSONEq(s.T(), `{"status":"OK"}`, rr.Body.String())
}

func (s *RouterTestSuite) TestProtectedRoute_MissingToken() {
	rr := s.do(http.MethodGet, "/api/profile/me", "", nil)

	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), MsgNoToken, s.decodeErrors(rr).Errors[0].Msg)
}

func (s *RouterTestSuite) TestProtectedRoute_InvalidToken() {
	other := auth.NewJWTService("some-other-secret", time.Hour)
	forged, err := other.GenerateToken(uuid.New())
	require.NoError(s.T(), err)

	for _, token := range []string{"garbage", forged} {
		rr := s.do(http.MethodGet, "/api/profile/me", token, nil)
		assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
		assert.Equal(s.T(), MsgInvalidToken, s.decodeErrors(rr).Errors[0].Msg)
	}
}

func (s *RouterTestSuite) TestProtectedRoute_ExpiredToken() {
	past := time.Now().Add(-2 * time.Hour)
	claims := auth.CustomClaims{
		User: auth.TokenUser{ID: uuid.NewString()},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(s.T(), err)

	rr := s.do(http.MethodGet, "/api/profile/me", expired, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), MsgInvalidToken, s.decodeErrors(rr).Errors[0].Msg)
}

func (s *RouterTestSuite) TestRegister_Validation() {
	rr := s.do(http.MethodPost, "/api/users", "", gin.H{"email": "not-an-email", "password": "123"})
	require.Equal(s.T(), http.StatusBadRequest, rr.Code)

	body := s.decodeErrors(rr)
	require.Len(s.T(), body.Errors, 3)
	assert.Equal(s.T(), "name", body.Errors[0].Param)
	assert.Equal(s.T(), "Name is required", body.Errors[0].Msg)
	assert.Equal(s.T(), "email", body.Errors[1].Param)
	assert.Equal(s.T(), "Not valid email address", body.Errors[1].Msg)
	assert.Equal(s.T(), "not-an-email", body.Errors[1].Value)
	assert.Equal(s.T(), "password", body.Errors[2].Param)
	assert.Nil(s.T(), body.Errors[2].Value)
	for _, e := range body.Errors {
		assert.Equal(s.T(), "body", e.Location)
	}
}

func (s *RouterTestSuite) TestRegister_DuplicateEmail() {
	s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPost, "/api/users", "", gin.H{"name": "Ana", "email": "ANA@example.com", "password": "secret123"})
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), authUC.MsgUserExists, s.decodeErrors(rr).Errors[0].Msg)
}

func (s *RouterTestSuite) TestLoginAndMe() {
	s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPost, "/api/auth", "", gin.H{"email": "ana@example.com", "password": "wrong-pass"})
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), authUC.MsgInvalidCredentials, s.decodeErrors(rr).Errors[0].Msg)

	rr = s.do(http.MethodPost, "/api/auth", "", gin.H{"email": "ana@example.com", "password": "secret123"})
	require.Equal(s.T(), http.StatusOK, rr.Code)
	var resp TokenResponse
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &resp))

	rr = s.do(http.MethodGet, "/api/auth", resp.Token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	var me UserDTO
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(s.T(), "Ana", me.Name)
	assert.Equal(s.T(), "ana@example.com", me.Email)
	assert.NotContains(s.T(), rr.Body.String(), "password")
}

func (s *RouterTestSuite) TestGetMe_NoProfileYet() {
	token := s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodGet, "/api/profile/me", token, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), profileUC.MsgNoProfile, s.decodeErrors(rr).Errors[0].Msg)
}

func (s *RouterTestSuite) TestUpsertThenGetMe() {
	token := s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{
		"status":         "Developer",
		"skills":         "js, go",
		"githubUserName": "octocat",
		"twitter":        "https://twitter.com/ana",
	})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	created := s.decodeProfile(rr)
	assert.Equal(s.T(), []string{"js", "go"}, created.Skills)

	rr = s.do(http.MethodGet, "/api/profile/me", token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	got := s.decodeProfile(rr)
	assert.Equal(s.T(), created.ID, got.ID)
	assert.Equal(s.T(), "Developer", got.Status)
	assert.Equal(s.T(), "octocat", got.GithubUserName)
	assert.Equal(s.T(), "https://twitter.com/ana", got.Social.Twitter)
	require.NotNil(s.T(), got.User)
	assert.Equal(s.T(), "Ana", got.User.Name)
	assert.Equal(s.T(), s.userIDOf(token), got.User.ID)
}

func (s *RouterTestSuite) TestUpsert_SkillsAsArray() {
	token := s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": []string{"rust", " go"}})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(s.T(), []string{"rust", "go"}, s.decodeProfile(rr).Skills)
}

func (s *RouterTestSuite) TestUpsert_Validation() {
	token := s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"company": "Acme"})
	require.Equal(s.T(), http.StatusBadRequest, rr.Code)

	body := s.decodeErrors(rr)
	require.Len(s.T(), body.Errors, 2)
	assert.Equal(s.T(), "status", body.Errors[0].Param)
	assert.Equal(s.T(), "Status should be mentioned", body.Errors[0].Msg)
	assert.Equal(s.T(), "skills", body.Errors[1].Param)
	assert.Equal(s.T(), "Skillset cannot be empty", body.Errors[1].Msg)

	rr = s.do(http.MethodGet, "/api/profile/me", token, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func (s *RouterTestSuite) TestUpsert_MalformedBody() {
	token := s.register("Ana", "ana@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAuthToken, token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Len(s.T(), s.decodeErrors(rr).Errors, 1)
}

func (s *RouterTestSuite) TestListAndGetByUserID() {
	anaToken := s.register("Ana", "ana@example.com")
	bobToken := s.register("Bob", "bob@example.com")
	for _, token := range []string{anaToken, bobToken} {
		rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": "go"})
		require.Equal(s.T(), http.StatusOK, rr.Code)
	}

	rr := s.do(http.MethodGet, "/api/profile", "", nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	var list []ProfileDTO
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(s.T(), list, 2)

	rr = s.do(http.MethodGet, "/api/profile/user/"+s.userIDOf(bobToken), "", nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "Bob", s.decodeProfile(rr).User.Name)

	rr = s.do(http.MethodGet, "/api/profile/user/not-a-uuid", "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), profileUC.MsgProfileNotFound, s.decodeErrors(rr).Errors[0].Msg)
}

func (s *RouterTestSuite) TestExperienceAndEducation() {
	token := s.register("Ana", "ana@example.com")
	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": "go"})
	require.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.do(http.MethodPut, "/api/profile/experience", token, gin.H{"title": "Dev", "company": "Acme", "from": "2019-01-01"})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPut, "/api/profile/experience", token, gin.H{"title": "Lead", "company": "Initech", "from": "2021-06-01T00:00:00Z", "current": true})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	p := s.decodeProfile(rr)
	require.Len(s.T(), p.Experience, 2)
	assert.Equal(s.T(), "Lead", p.Experience[0].Title)
	assert.Equal(s.T(), "Dev", p.Experience[1].Title)

	rr = s.do(http.MethodDelete, "/api/profile/experience/"+p.Experience[0].ID, token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	p = s.decodeProfile(rr)
	require.Len(s.T(), p.Experience, 1)
	assert.Equal(s.T(), "Dev", p.Experience[0].Title)

	rr = s.do(http.MethodDelete, "/api/profile/experience/"+uuid.NewString(), token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Len(s.T(), s.decodeProfile(rr).Experience, 1)

	rr = s.do(http.MethodPut, "/api/profile/education", token, gin.H{"school": "MIT", "degree": "BSc", "fieldOfStudy": "CS", "from": "2010-09-01"})
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	p = s.decodeProfile(rr)
	require.Len(s.T(), p.Education, 1)
	assert.Equal(s.T(), "CS", p.Education[0].FieldOfStudy)

	rr = s.do(http.MethodDelete, "/api/profile/education/"+p.Education[0].ID, token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Empty(s.T(), s.decodeProfile(rr).Education)
}

func (s *RouterTestSuite) TestAddExperience_Validation() {
	token := s.register("Ana", "ana@example.com")

	rr := s.do(http.MethodPut, "/api/profile/experience", token, gin.H{"company": "Acme", "from": "yesterday"})
	require.Equal(s.T(), http.StatusBadRequest, rr.Code)
	body := s.decodeErrors(rr)
	require.Len(s.T(), body.Errors, 1)
	assert.Equal(s.T(), "from", body.Errors[0].Param)

	rr = s.do(http.MethodPut, "/api/profile/experience", token, gin.H{"company": "Acme"})
	require.Equal(s.T(), http.StatusBadRequest, rr.Code)
	body = s.decodeErrors(rr)
	require.Len(s.T(), body.Errors, 2)
	assert.Equal(s.T(), "title", body.Errors[0].Param)
	assert.Equal(s.T(), "from", body.Errors[1].Param)
}

func (s *RouterTestSuite) TestDeleteAccount() {
	token := s.register("Ana", "ana@example.com")
	userID := s.userIDOf(token)
	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": "go"})
	require.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.do(http.MethodDelete, "/api/profile", token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.JSONEq(s.T(), `{"msg":"User Deleted"}`, rr.Body.String())

	rr = s.do(http.MethodGet, "/api/profile/user/"+userID, "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), profileUC.MsgProfileNotFound, s.decodeErrors(rr).Errors[0].Msg)

	rr = s.do(http.MethodPost, "/api/auth", "", gin.H{"email": "ana@example.com", "password": "secret123"})
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func (s *RouterTestSuite) TestUpsert_AfterAccountDeleted() {
	token := s.register("Ana", "ana@example.com")
	rr := s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": "go"})
	require.Equal(s.T(), http.StatusOK, rr.Code)
	rr = s.do(http.MethodDelete, "/api/profile", token, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.do(http.MethodPost, "/api/profile", token, gin.H{"status": "Developer", "skills": "go"})
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), "Invalid credentials", s.decodeErrors(rr).Errors[0].Msg)

	rr = s.do(http.MethodGet, "/api/profile", "", nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.JSONEq(s.T(), `[]`, rr.Body.String())
}

func (s *RouterTestSuite) TestGithubRepos() {
	rr := s.do(http.MethodGet, "/api/profile/github/octocat", "", nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	var repos []RepoDTO
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &repos))
	require.Len(s.T(), repos, 1)
	assert.Equal(s.T(), "hello-world", repos[0].Name)

	rr = s.do(http.MethodGet, "/api/profile/github/nobody", "", nil)
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)
	assert.JSONEq(s.T(), `{"msg":"No github profile found"}`, rr.Body.String())
}

func TestAuthMiddleware_DoesNotInvokeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService(testSecret, time.Hour)

	invoked := false
	router := gin.New()
	router.GET("/private", AuthMiddleware(jwtSvc, logger.NewNop()), func(c *gin.Context) {
		invoked = true
		identity, ok := GetIdentityFromGinContext(c)
		assert.True(t, ok)
		c.String(http.StatusOK, identity.UserID.String())
	})

	for _, token := range []string{"", "not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if token != "" {
			req.Header.Set(HeaderAuthToken, token)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	assert.False(t, invoked)

	userID := uuid.New()
	token, err := jwtSvc.GenerateToken(userID)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(HeaderAuthToken, token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.True(t, invoked)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, userID.String(), rr.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(0.001, 2)

	router := gin.New()
	router.POST("/login", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	assert.True(t, limiter.Allow("198.51.100.7"), "buckets are per client ip")
}
