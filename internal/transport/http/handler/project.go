package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/app"
	"tasktracker/internal/transport/http/response"
)

const (
	MessageStored       = "Data successfully stored!"
	MessageDeleted      = "Successfully deleted!"
	MessageFillProject  = "Fill the project name!"
	MessageDataNotFound = "Data not found!"
)

type ProjectHandler struct {
	projectService *app.ProjectService
}

type ProjectRequest struct {
	Name string `json:"name" form:"name"`
}

func NewProjectHandler(projectService *app.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	project, err := h.projectService.Create(req.Name)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFields):
			response.Error(c, http.StatusBadRequest, response.CodeMissingFields, MessageFillProject)
		default:
			internalError(c, "The data is not stored!", err)
		}
		return
	}

	response.OKWithMessage(c, MessageStored, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List()
	if err != nil {
		internalError(c, "list projects failed", err)
		return
	}
	response.OK(c, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(id)
	if err != nil {
		h.writeError(c, err, "get project failed")
		return
	}
	response.OK(c, project)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	project, err := h.projectService.Rename(id, req.Name)
	if err != nil {
		h.writeError(c, err, "update project failed")
		return
	}
	response.OK(c, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(id); err != nil {
		h.writeError(c, err, "Error deleting!")
		return
	}
	response.OKWithMessage(c, MessageDeleted, nil)
}

func (h *ProjectHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrMissingFields):
		response.Error(c, http.StatusBadRequest, response.CodeMissingFields, "Insert the project name!")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid project id")
	case errors.Is(err, app.ErrProjectNotFound):
		response.Error(c, http.StatusNotFound, response.CodeProjectNotFound, MessageDataNotFound)
	default:
		internalError(c, fallback, err)
	}
}

// pathID parses the :id route parameter and writes a 400 when it is not a
// positive integer.
func pathID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid id")
		return 0, false
	}
	return uint(id64), true
}
