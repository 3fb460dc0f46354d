package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/services"
)

func registerTaskRoutes(r *gin.Engine, taskSvc *services.TaskService, requireAuth gin.HandlerFunc) error {
	h, err := handlers.NewTaskHandler(taskSvc)
	if err != nil {
		return err
	}

	tasks := r.Group("/api/tasks")
	tasks.Use(requireAuth)
	tasks.POST("", h.Create)
	tasks.GET("", h.List)
	tasks.PUT("/:id", h.Update)
	tasks.DELETE("/:id", h.Delete)

	return nil
}

func registerUserRoutes(r *gin.Engine, authSvc *services.AuthService, requireAuth gin.HandlerFunc) error {
	h, err := handlers.NewUserHandler(authSvc)
	if err != nil {
		return err
	}

	user := r.Group("/api/user")
	user.Use(requireAuth)
	user.GET("/profile", h.Profile)

	return nil
}
