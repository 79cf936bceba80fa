package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/app"
	"tasktracker/internal/transport/http/middleware"
	"tasktracker/internal/transport/http/response"
)

const MessageFillTask = "Fill the data!"

type TaskHandler struct {
	taskService *app.TaskService
}

type CreateTaskRequest struct {
	Name      string `json:"name" form:"name"`
	ProjectID uint   `json:"project_id" form:"project_id"`
}

type UpdateTaskRequest struct {
	Name string `json:"name" form:"name"`
}

func NewTaskHandler(taskService *app.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) Create(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	task, err := h.taskService.Create(app.CreateTaskInput{
		UserID:    claims.UserID,
		ProjectID: req.ProjectID,
		Name:      req.Name,
	})
	if err != nil {
		h.writeError(c, err, "Error storing data!")
		return
	}
	response.OKWithMessage(c, MessageStored, task)
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.taskService.List()
	if err != nil {
		internalError(c, "list tasks failed", err)
		return
	}
	response.OK(c, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(id)
	if err != nil {
		h.writeError(c, err, "get task failed")
		return
	}
	response.OK(c, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	task, err := h.taskService.Rename(id, req.Name)
	if err != nil {
		h.writeError(c, err, "update task failed")
		return
	}
	response.OK(c, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(id); err != nil {
		h.writeError(c, err, "delete task failed")
		return
	}
	response.OKWithMessage(c, MessageDeleted, nil)
}

func (h *TaskHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrMissingFields):
		response.Error(c, http.StatusBadRequest, response.CodeMissingFields, MessageFillTask)
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrProjectNotFound):
		response.Error(c, http.StatusNotFound, response.CodeProjectNotFound, "Project not found!")
	case errors.Is(err, app.ErrTaskNotFound):
		response.Error(c, http.StatusNotFound, response.CodeTaskNotFound, "Task not found!")
	default:
		internalError(c, fallback, err)
	}
}
