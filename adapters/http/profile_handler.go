package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	profileUC "github.com/khoahotran/devconnector/internal/application/usecase/profile"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const MsgUserDeleted = "User Deleted"

type ProfileHandler struct {
	profileUseCase *profileUC.ProfileUseCase
	logger         logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: uc,
		logger:         log,
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentityFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("identity not found in context", nil))
		return uuid.Nil, false
	}
	return identity.UserID, true
}

// GetMe handles GET /api/profile/me.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.GetOwnProfile(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// Upsert handles POST /api/profile.
func (h *ProfileHandler) Upsert(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindingError(err, nil))
		return
	}

	p, err := h.profileUseCase.UpsertProfile(c.Request.Context(), profileUC.UpsertProfileInput{
		UserID:         userID,
		Status:         req.Status,
		Skills:         string(req.Skills),
		Company:        req.Company,
		Location:       req.Location,
		Bio:            req.Bio,
		Website:        req.Website,
		GithubUserName: req.GithubUserName,
		YouTube:        req.YouTube,
		Twitter:        req.Twitter,
		Facebook:       req.Facebook,
		LinkedIn:       req.LinkedIn,
		Instagram:      req.Instagram,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// List handles GET /api/profile.
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profileUseCase.ListProfiles(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTOs(profiles))
}

// GetByUserID handles GET /api/profile/user/:user_id.
func (h *ProfileHandler) GetByUserID(c *gin.Context) {
	p, err := h.profileUseCase.GetProfileByUserID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// Delete handles DELETE /api/profile. The account goes with the profile.
func (h *ProfileHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.profileUseCase.DeleteOwnProfile(c.Request.Context(), userID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": MsgUserDeleted})
}

// AddExperience handles PUT /api/profile/experience.
func (h *ProfileHandler) AddExperience(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req AddExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindingError(err, nil))
		return
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		c.Error(err)
		return
	}

	p, err := h.profileUseCase.AddExperience(c.Request.Context(), profileUC.AddExperienceInput{
		UserID:      userID,
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		From:        from,
		To:          to,
		Current:     req.Current,
		Description: req.Description,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// RemoveExperience handles DELETE /api/profile/experience/:exp_id.
func (h *ProfileHandler) RemoveExperience(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.RemoveExperience(c.Request.Context(), userID, c.Param("exp_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// AddEducation handles PUT /api/profile/education.
func (h *ProfileHandler) AddEducation(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req AddEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindingError(err, nil))
		return
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		c.Error(err)
		return
	}

	p, err := h.profileUseCase.AddEducation(c.Request.Context(), profileUC.AddEducationInput{
		UserID:       userID,
		School:       req.School,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		Location:     req.Location,
		From:         from,
		To:           to,
		Current:      req.Current,
		Description:  req.Description,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}

// RemoveEducation handles DELETE /api/profile/education/:edu_id.
func (h *ProfileHandler) RemoveEducation(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.RemoveEducation(c.Request.Context(), userID, c.Param("edu_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(p))
}
