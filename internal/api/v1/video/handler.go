package video

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"witweb-studio/internal/api/v1/common"
	"witweb-studio/internal/middleware"
	"witweb-studio/internal/models"
	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
	"witweb-studio/pkg/logger"
)

// Handler serves the owner-scoped video API
type Handler struct {
	tasks  *services.TaskService
	poller *services.Poller
}

func NewHandler(engine *services.Engine) *Handler {
	return &Handler{tasks: engine.Tasks, poller: engine.Poller}
}

// GenerateVideo godoc
// @Summary Submit a video generation task
// @Tags video
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body GenerateVideoRequest true "Generation parameters"
// @Success 200 {object} SubmitResponse
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /api/video/generate [post]
func (h *Handler) GenerateVideo(c *gin.Context) {
	var req GenerateVideoRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = defaultAspectRatio
	}
	if req.Size == "" {
		req.Size = defaultSize
	}

	h.submit(c, models.TaskTypeGenerate, services.TaskParams{
		Prompt:        req.Prompt,
		Model:         req.Model,
		Duration:      req.Duration,
		URL:           req.URL,
		AspectRatio:   req.AspectRatio,
		Size:          req.Size,
		RemixTargetID: req.RemixTargetID,
	})
}

// UploadCharacter godoc
// @Summary Create a character from an uploaded video
// @Tags video
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body UploadCharacterRequest true "Source video"
// @Success 200 {object} SubmitResponse
// @Failure 400 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /api/video/upload-character [post]
func (h *Handler) UploadCharacter(c *gin.Context) {
	var req UploadCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submit(c, models.TaskTypeUploadCharacter, services.TaskParams{
		URL:        req.URL,
		Timestamps: timestampsOrDefault(req.Timestamps),
	})
}

// CreateCharacter godoc
// @Summary Create a character from a generated video
// @Tags video
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateCharacterRequest true "Source video pid"
// @Success 200 {object} SubmitResponse
// @Failure 400 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /api/video/create-character [post]
func (h *Handler) CreateCharacter(c *gin.Context) {
	var req CreateCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submit(c, models.TaskTypeCreateCharacter, services.TaskParams{
		PID:        req.PID,
		Timestamps: timestampsOrDefault(req.Timestamps),
	})
}

func timestampsOrDefault(ts string) string {
	if ts == "" {
		return defaultTimestamps
	}
	return ts
}

func (h *Handler) submit(c *gin.Context, taskType models.TaskType, p services.TaskParams) {
	id, err := h.tasks.CreateTask(c.Request.Context(), middleware.Owner(c), taskType, p)
	if err != nil {
		common.AbortWithTask(c, id, err)
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{OK: true, TaskID: id})
}

// ListTasks godoc
// @Summary List the caller's tasks
// @Tags video
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param task_type query string false "generate, upload_character or create_character"
// @Success 200 {object} TaskListResponse
// @Router /api/video/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit"))
		return
	}
	taskType := models.TaskType(c.Query("task_type"))

	tasks, total, err := h.tasks.List(c.Request.Context(), middleware.Owner(c), page, limit, taskType)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, TaskListResponse{Tasks: tasks, Total: total, Page: page, Limit: limit})
}

// GetTask godoc
// @Summary Get one of the caller's tasks
// @Description Tasks still in progress are refreshed from the provider first; refresh failures return the stored state
// @Tags video
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Task ID"
// @Success 200 {object} models.Task
// @Failure 404 {object} utils.Response
// @Router /api/video/tasks/{id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	ctx := c.Request.Context()
	owner := middleware.Owner(c)
	id := c.Param("id")

	task, err := h.tasks.Get(ctx, owner, id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	if !task.Status.IsTerminal() {
		if _, _, err := h.poller.PollAndUpdate(ctx, id); err != nil {
			logger.Log.Warn("poll task", zap.String("task_id", id), zap.Error(err))
		} else if refreshed, err := h.tasks.Get(ctx, owner, id); err == nil {
			task = refreshed
		}
	}
	c.JSON(http.StatusOK, task)
}

// ListCharacters godoc
// @Summary List the caller's characters
// @Tags video
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} CharacterListResponse
// @Router /api/video/characters [get]
func (h *Handler) ListCharacters(c *gin.Context) {
	characters, err := h.tasks.Characters(c.Request.Context(), middleware.Owner(c))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CharacterListResponse{Characters: characters})
}
