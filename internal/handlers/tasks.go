package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/taskhive/taskhive/internal/services"
	appErrors "github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/response"
)

// TaskHandler exposes CRUD endpoints for the caller's tasks.
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler wires the task service into HTTP handlers.
func NewTaskHandler(tasks *services.TaskService) (*TaskHandler, error) {
	if tasks == nil {
		return nil, errors.New("task handler: task service is required")
	}
	return &TaskHandler{tasks: tasks}, nil
}

type createTaskRequest struct {
	Heading     string         `json:"heading" validate:"required"`
	Description string         `json:"description" validate:"required"`
	Labels      datatypes.JSON `json:"labels,omitempty"`
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), userID, services.CreateTaskInput{
		Heading:     req.Heading,
		Description: req.Description,
		Labels:      req.Labels,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, task)
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tasks, err := h.tasks.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

type updateTaskRequest struct {
	Heading     *string        `json:"heading,omitempty"`
	Description *string        `json:"description,omitempty"`
	Done        *bool          `json:"done,omitempty"`
	Labels      datatypes.JSON `json:"labels,omitempty"`
}

// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Update(requestContext(c), userID, c.Param("id"), services.UpdateTaskInput{
		Heading:     req.Heading,
		Description: req.Description,
		Done:        req.Done,
		Labels:      req.Labels,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.tasks.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Task deleted successfully")
}
