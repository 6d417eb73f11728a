package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tasks  service.TaskService
	secret string
	logger *logrus.Logger
}

func NewHandler(users service.UserService, tasks service.TaskService, jwtSecret string, logger *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		tasks:  tasks,
		secret: jwtSecret,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), accessLog(h.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Server is running"})
	})

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	tasks := api.Group("/tasks", RequireAuth(h.secret))
	{
		tasks.POST("", h.createTask)
		tasks.GET("", h.listTasks)
		tasks.GET("/:id", h.getTask)
		tasks.PUT("/:id", h.updateTask)
		tasks.DELETE("/:id", h.deleteTask)
	}

	api.GET("/users", RequireAuth(h.secret), RequireRoles(domain.RoleAdmin), h.listUsers)
}

func (h *Handler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) createTask(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}

	var in service.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), ident.UserID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, taskToResponse(task))
}

func (h *Handler) listTasks(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}

	in := service.ListTasksInput{
		Status: domain.TaskStatus(c.Query("status")),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	}

	tasks, pagination, err := h.tasks.List(c.Request.Context(), ident, in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":      resp,
		"pagination": pagination,
	})
}

func (h *Handler) getTask(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

func (h *Handler) updateTask(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}

	var in service.UpdateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), ident, c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	ident, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, pagination, err := h.users.ListUsers(c.Request.Context(), intQuery(c, "page"), intQuery(c, "limit"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      resp,
		"pagination": pagination,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": verr.Fields})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

// intQuery returns the named query parameter as an int, or 0 when it is
// absent or not numeric; the service layer applies the defaults.
func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type TaskResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status"`
	OwnerID     string            `json:"owner_id"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		OwnerID:     task.OwnerID,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
}
