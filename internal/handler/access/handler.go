package access

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/handler"
	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/service/accesscode"
)

// Handler serves the public validation endpoint: a code bearer, usually
// a caregiver without an account, exchanges a code plus claimed identity
// for a bounded dossier view.
type Handler struct {
	validator *accesscode.Validator
}

func NewHandler(validator *accesscode.Validator) *Handler {
	return &Handler{validator: validator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/access/validate", h.ValidateCode)
}

func (h *Handler) ValidateCode(c *gin.Context) {
	var req model.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	input := accesscode.ValidateInput{
		Code: req.AccessCode,
		Claimed: model.ClaimedIdentity{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			BirthDate: req.BirthDate,
		},
		DocumentType:   req.DocumentType,
		ActorName:      req.LastName,
		ActorFirstName: req.FirstName,
	}

	// An authenticated bearer may present their own permanent code.
	if id, ok := authenticatedUserID(c); ok {
		input.AuthenticatedUserID = &id
	}

	dossier, err := h.validator.Validate(c, input)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(dossier))
}

func authenticatedUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("userID")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
