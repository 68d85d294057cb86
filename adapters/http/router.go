package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/devconnector/pkg/auth"
	"github.com/khoahotran/devconnector/pkg/logger"
)

// RouterDeps collects what NewRouter mounts. UserHandler and RateLimiter are
// optional; their routes or middleware are skipped when nil.
type RouterDeps struct {
	JWTService     *auth.JWTService
	AuthHandler    *AuthHandler
	ProfileHandler *ProfileHandler
	GithubHandler  *GithubHandler
	UserHandler    *UserHandler
	RateLimiter    *IPRateLimiter
	Logger         logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(deps.Logger))
	router.Use(ErrorMiddleware(deps.Logger))

	authMiddleware := AuthMiddleware(deps.JWTService, deps.Logger)
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{RateLimitMiddleware(deps.RateLimiter), h}
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "OK"})
		})

		users := api.Group("/users")
		{
			users.POST("", limited(deps.AuthHandler.Register)...)
			if deps.UserHandler != nil {
				users.PUT("/avatar", authMiddleware, deps.UserHandler.UploadAvatar)
			}
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("", limited(deps.AuthHandler.Login)...)
			authGroup.GET("", authMiddleware, deps.AuthHandler.Me)
		}

		profiles := api.Group("/profile")
		{
			profiles.GET("", deps.ProfileHandler.List)
			profiles.GET("/user/:user_id", deps.ProfileHandler.GetByUserID)
			if deps.GithubHandler != nil {
				profiles.GET("/github/:username", deps.GithubHandler.GetRepos)
			}

			private := profiles.Group("")
			private.Use(authMiddleware)
			{
				private.GET("/me", deps.ProfileHandler.GetMe)
				private.POST("", deps.ProfileHandler.Upsert)
				private.DELETE("", deps.ProfileHandler.Delete)
				private.PUT("/experience", deps.ProfileHandler.AddExperience)
				private.DELETE("/experience/:exp_id", deps.ProfileHandler.RemoveExperience)
				private.PUT("/education", deps.ProfileHandler.AddEducation)
				private.DELETE("/education/:edu_id", deps.ProfileHandler.RemoveEducation)
			}
		}
	}

	return router
}
