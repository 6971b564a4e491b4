package labresult

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/handler"
	"github.com/meditrack/hospital-api/internal/middleware"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/service/result"
)

// maxUploadSize caps result file uploads at 10MB.
const maxUploadSize = 10 << 20

type Handler struct {
	service *result.Service
	// exposeAccessCodes echoes minted codes in approval responses.
	// Development only; the production delivery path is email.
	exposeAccessCodes bool
}

func NewHandler(service *result.Service, exposeAccessCodes bool) *Handler {
	return &Handler{service: service, exposeAccessCodes: exposeAccessCodes}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	results := r.Group("/lab-results")
	{
		results.POST("/submit/manual", auth.RequireRole(model.RoleLabTechnician), h.SubmitManual)
		results.POST("/submit/upload", auth.RequireRole(model.RoleLabTechnician), h.SubmitFile)
		results.POST("/approve", auth.RequireRole(model.RoleDoctor), h.Review)
		results.POST("/:id/access", auth.RequireRole(model.RolePatient), h.Access)
		results.GET("", h.List)
		results.GET("/:id", h.Get)
	}
}

func (h *Handler) SubmitManual(c *gin.Context) {
	var req model.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	caller := middleware.CallerFrom(c)
	res, err := h.service.SubmitManual(c.Request.Context(), caller, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(res))
}

func (h *Handler) SubmitFile(c *gin.Context) {
	var req model.SubmitFileResultRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("result file is required"))
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("file exceeds maximum size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(err)
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.Error(err)
		return
	}

	caller := middleware.CallerFrom(c)
	res, err := h.service.SubmitFile(c.Request.Context(), caller, &req, fileBytes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(res))
}

func (h *Handler) Review(c *gin.Context) {
	var req model.ReviewResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	caller := middleware.CallerFrom(c)
	outcome, err := h.service.Review(c.Request.Context(), caller, &req)
	if err != nil {
		c.Error(err)
		return
	}

	data := gin.H{"result": outcome.Result}
	if outcome.Access != nil {
		data["access_expires_at"] = outcome.Access.ExpiresAt
		if h.exposeAccessCodes {
			data["access_code"] = outcome.AccessCode
		}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(data))
}

// Access verifies the caller's access code and streams the approved
// artifact as a PDF attachment.
func (h *Handler) Access(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid result ID"))
		return
	}

	var req model.AccessResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	caller := middleware.CallerFrom(c)
	data, err := h.service.Retrieve(c.Request.Context(), caller, resultID, req.AccessCode)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=result-%s.pdf", resultID))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.ResultFilters{}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.ResultStatus(status)
	}
	filters.Normalize()

	caller := middleware.CallerFrom(c)
	results, err := h.service.List(c.Request.Context(), caller, filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewListResponse(results, len(results)))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid result ID"))
		return
	}

	caller := middleware.CallerFrom(c)
	res, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}
