package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
	apperrors "github.com/taskhive/taskhive/pkg/errors"
)

// ErrTaskNotFound indicates the task does not exist or belongs to another user.
var ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)

// TaskService manages the CRUD lifecycle of user-owned tasks.
type TaskService struct {
	db *gorm.DB
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(db *gorm.DB) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	return &TaskService{db: db}, nil
}

// CreateTaskInput describes the fields accepted when creating a task.
type CreateTaskInput struct {
	Heading     string
	Description string
	Labels      datatypes.JSON
}

// UpdateTaskInput enumerates mutable task attributes.
type UpdateTaskInput struct {
	Heading     *string
	Description *string
	Done        *bool
	Labels      datatypes.JSON
}

// Create persists a new task owned by the given user.
func (s *TaskService) Create(ctx context.Context, userID string, input CreateTaskInput) (*models.Task, error) {
	task := models.Task{
		UserID:      userID,
		Heading:     strings.TrimSpace(input.Heading),
		Description: strings.TrimSpace(input.Description),
		Labels:      input.Labels,
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("task service: create: %w", err)
	}
	return &task, nil
}

// List returns all tasks owned by the user, newest first.
func (s *TaskService) List(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list: %w", err)
	}
	return tasks, nil
}

// Update mutates an existing task. Ownership is enforced by scoping the lookup
// to the calling user.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.find(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Heading != nil {
		updates["heading"] = strings.TrimSpace(*input.Heading)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Done != nil {
		updates["done"] = *input.Done
	}
	if input.Labels != nil {
		updates["labels"] = input.Labels
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("task service: update: %w", err)
		}
	}

	return s.find(ctx, userID, taskID)
}

// Delete removes a task owned by the user.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		Delete(&models.Task{})
	if res.Error != nil {
		return fmt.Errorf("task service: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *TaskService) find(ctx context.Context, userID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).
		Take(&task, "id = ? AND user_id = ?", taskID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("task service: find: %w", err)
	}
	return &task, nil
}
