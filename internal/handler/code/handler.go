package code

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/handler"
	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/service/accesscode"
	"github.com/mesdirectives/access-api/internal/service/notification"
)

// Handler serves the owner-facing issuance surface. Every route requires
// an authenticated user; codes always belong to the caller.
type Handler struct {
	generator *accesscode.Generator
	notifier  *notification.Service
}

func NewHandler(generator *accesscode.Generator, notifier *notification.Service) *Handler {
	return &Handler{generator: generator, notifier: notifier}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	codes := r.Group("/codes")
	{
		codes.GET("/permanent", h.GetPermanentCode)
		codes.POST("", h.GenerateCode)
		codes.GET("", h.ListCodes)
		codes.POST("/:code/extend", h.ExtendCode)
		codes.DELETE("/:code", h.RevokeCode)
	}

	r.POST("/shares", h.CreateShare)

	directives := r.Group("/directives")
	{
		directives.POST("/:id/institution-code", h.SetInstitutionCode)
		directives.DELETE("/:id/institution-code", h.ClearInstitutionCode)
	}
}

func (h *Handler) GetPermanentCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.GenerateCodeResponse{
		Code: h.generator.FixedCode(userID),
		Kind: model.CodeKindPermanent,
	}))
}

func (h *Handler) GenerateCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req model.GenerateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.generator.GenerateTemporary(c.Request.Context(), userID, accesscode.GenerateOptions{
		ExpiresInDays:       req.ExpiresInDays,
		RequirePersonalInfo: req.RequirePersonalInfo,
		SingleUse:           req.SingleUse,
		BoundDocumentID:     req.BoundDocumentID,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.notifier.NotifyCodeIssued(c.Request.Context(), userID, record.Code, record.ExpiresAt)

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.GenerateCodeResponse{
		Code:      record.Code,
		Kind:      record.Kind,
		ExpiresAt: record.ExpiresAt,
	}))
}

func (h *Handler) ListCodes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	codes, err := h.generator.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(codes))
}

func (h *Handler) ExtendCode(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var req model.ExtendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.generator.Extend(c.Request.Context(), c.Param("code"), req.AdditionalDays)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.GenerateCodeResponse{
		Code:      record.Code,
		Kind:      record.Kind,
		ExpiresAt: record.ExpiresAt,
	}))
}

func (h *Handler) RevokeCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	code := c.Param("code")
	if err := h.generator.Revoke(c.Request.Context(), code); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.notifier.NotifyCodeRevoked(c.Request.Context(), userID, accesscode.NormalizeCode(code))

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"revoked": true}))
}

func (h *Handler) CreateShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req model.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	share, err := h.generator.GenerateShare(c.Request.Context(), userID, req.ExpiresInDays)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.notifier.NotifyCodeIssued(c.Request.Context(), userID, share.Code, share.ExpiresAt)

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(share))
}

func (h *Handler) SetInstitutionCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	directiveID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid directive ID"))
		return
	}

	var req model.SetInstitutionCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	code, expiresAt, err := h.generator.SetInstitutionCode(c.Request.Context(), directiveID, userID, req.ExpiresInDays)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.GenerateCodeResponse{
		Code:      code,
		Kind:      model.CodeKindInstitution,
		ExpiresAt: expiresAt,
	}))
}

func (h *Handler) ClearInstitutionCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	directiveID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid directive ID"))
		return
	}

	if err := h.generator.ClearInstitutionCode(c.Request.Context(), directiveID, userID); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"revoked": true}))
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}
