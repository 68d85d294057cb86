package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	githubUC "github.com/khoahotran/devconnector/internal/application/usecase/github"
	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const MsgNoGithubProfile = "No github profile found"

type GithubHandler struct {
	githubUseCase *githubUC.GithubUseCase
	logger        logger.Logger
}

func NewGithubHandler(uc *githubUC.GithubUseCase, log logger.Logger) *GithubHandler {
	return &GithubHandler{githubUseCase: uc, logger: log}
}

// GetRepos handles GET /api/profile/github/:username.
func (h *GithubHandler) GetRepos(c *gin.Context) {
	repos, err := h.githubUseCase.GetRepos(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, github.ErrGithubProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": MsgNoGithubProfile})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToRepoDTOs(repos))
}
