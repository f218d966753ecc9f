package studio

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/api/v1/common"
	"witweb-studio/internal/models"
	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
)

// Handler serves the local studio UI. Every task it creates belongs to
// services.LocalOwner.
type Handler struct {
	engine *services.Engine
}

func NewHandler(engine *services.Engine) *Handler {
	return &Handler{engine: engine}
}

// StartGenerate godoc
// @Summary Submit a video generation task
// @Description Submits the job, records it as active and returns its id without waiting
// @Tags studio
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generation parameters"
// @Success 200 {object} IDResponse
// @Failure 400 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /generate/start [post]
func (h *Handler) StartGenerate(c *gin.Context) {
	var req GenerateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	id, err := h.engine.Tasks.CreateTask(c.Request.Context(), services.LocalOwner, models.TaskTypeGenerate, req.params())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, IDResponse{ID: id})
}

// Generate godoc
// @Summary Submit a video and finalize it in the background
// @Description Submits the job and queues it; the artifact appears in history once it succeeds
// @Tags studio
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generation parameters"
// @Success 202 {object} IDResponse
// @Failure 400 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /generate [post]
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submitDetached(c, models.TaskTypeGenerate, req.params(), req.Prompt)
}

// Finalize godoc
// @Summary Materialize a finished task
// @Description Returns the history record once the video is stored, the character for character tasks, or the current status while the job is still running
// @Tags studio
// @Accept json
// @Produce json
// @Param request body FinalizeRequest true "Task id and prompt"
// @Success 200 {object} models.HistoryRecord
// @Failure 409 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /generate/finalize [post]
func (h *Handler) Finalize(c *gin.Context) {
	var req FinalizeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	out, err := h.engine.Finalizer.Finalize(c.Request.Context(), req.ID, req.Prompt)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	switch {
	case out.Record != nil:
		c.JSON(http.StatusOK, out.Record)
	case out.Character != nil:
		c.JSON(http.StatusOK, out.Character)
	default:
		c.JSON(http.StatusOK, out.Snapshot)
	}
}

// Result godoc
// @Summary Fetch the provider status of a task
// @Tags studio
// @Accept json
// @Produce json
// @Param request body ResultRequest true "Task id"
// @Success 200 {object} provider.TaskSnapshot
// @Failure 502 {object} utils.Response
// @Router /result [post]
func (h *Handler) Result(c *gin.Context) {
	var req ResultRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	snap, err := h.engine.Poller.GetResult(c.Request.Context(), req.ID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	if len(snap.Raw) > 0 {
		c.Data(http.StatusOK, "application/json; charset=utf-8", snap.Raw)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// StartUploadCharacter godoc
// @Summary Submit a character upload task
// @Tags studio
// @Accept json
// @Produce json
// @Param request body UploadCharacterRequest true "Character source"
// @Success 200 {object} IDResponse
// @Failure 502 {object} utils.Response
// @Router /character/upload/start [post]
func (h *Handler) StartUploadCharacter(c *gin.Context) {
	var req UploadCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submit(c, models.TaskTypeUploadCharacter, uploadParams(req))
}

// UploadCharacter godoc
// @Summary Submit a character upload and finalize it in the background
// @Tags studio
// @Accept json
// @Produce json
// @Param request body UploadCharacterRequest true "Character source"
// @Success 202 {object} IDResponse
// @Failure 502 {object} utils.Response
// @Router /character/upload [post]
func (h *Handler) UploadCharacter(c *gin.Context) {
	var req UploadCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submitDetached(c, models.TaskTypeUploadCharacter, uploadParams(req), "")
}

// StartCreateCharacter godoc
// @Summary Submit a character creation task from an existing video
// @Tags studio
// @Accept json
// @Produce json
// @Param request body CreateCharacterRequest true "Source video pid"
// @Success 200 {object} IDResponse
// @Failure 502 {object} utils.Response
// @Router /character/create/start [post]
func (h *Handler) StartCreateCharacter(c *gin.Context) {
	var req CreateCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submit(c, models.TaskTypeCreateCharacter, createParams(req))
}

// CreateCharacter godoc
// @Summary Submit a character creation and finalize it in the background
// @Tags studio
// @Accept json
// @Produce json
// @Param request body CreateCharacterRequest true "Source video pid"
// @Success 202 {object} IDResponse
// @Failure 502 {object} utils.Response
// @Router /character/create [post]
func (h *Handler) CreateCharacter(c *gin.Context) {
	var req CreateCharacterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.submitDetached(c, models.TaskTypeCreateCharacter, createParams(req), "")
}

func uploadParams(req UploadCharacterRequest) services.TaskParams {
	return services.TaskParams{
		URL:          req.URL,
		Timestamps:   req.Timestamps,
		WebHook:      req.WebHook,
		ShutProgress: req.ShutProgress,
	}
}

func createParams(req CreateCharacterRequest) services.TaskParams {
	return services.TaskParams{
		PID:          req.PID,
		Timestamps:   req.Timestamps,
		WebHook:      req.WebHook,
		ShutProgress: req.ShutProgress,
	}
}

func (h *Handler) submit(c *gin.Context, taskType models.TaskType, p services.TaskParams) {
	id, err := h.engine.Tasks.CreateTask(c.Request.Context(), services.LocalOwner, taskType, p)
	if err != nil {
		common.AbortWithTask(c, id, err)
		return
	}
	c.JSON(http.StatusOK, IDResponse{ID: id})
}

// submitDetached creates the task and hands the wait to the dispatcher
func (h *Handler) submitDetached(c *gin.Context, taskType models.TaskType, p services.TaskParams, prompt string) {
	ctx := c.Request.Context()
	id, err := h.engine.Tasks.CreateTask(ctx, services.LocalOwner, taskType, p)
	if err != nil {
		common.AbortWithTask(c, id, err)
		return
	}
	// the task is already tracked, so the reconciler still finalizes it if
	// the queue is unreachable
	if err := h.engine.Dispatcher.Enqueue(ctx, id, prompt); err != nil {
		c.Error(err)
	}
	c.JSON(http.StatusAccepted, IDResponse{ID: id})
}

// ActiveTasks godoc
// @Summary List tasks the UI should keep polling
// @Tags studio
// @Produce json
// @Success 200 {array} models.ActiveTask
// @Router /tasks/active [get]
func (h *Handler) ActiveTasks(c *gin.Context) {
	tasks, err := h.engine.Registry.List(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.ActiveTask{}
	}
	c.JSON(http.StatusOK, tasks)
}

// RemoveActiveTask godoc
// @Summary Stop tracking a task
// @Description Removes the bookkeeping entry only; the remote job is not cancelled
// @Tags studio
// @Accept json
// @Produce json
// @Param request body ActiveTaskRemoveRequest true "Task id"
// @Success 200 {object} OKResponse
// @Router /tasks/active/remove [post]
func (h *Handler) RemoveActiveTask(c *gin.Context) {
	var req ActiveTaskRemoveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := h.engine.Registry.Remove(c.Request.Context(), req.ID); err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// History godoc
// @Summary List materialized videos
// @Tags studio
// @Produce json
// @Success 200 {array} models.HistoryRecord
// @Router /history [get]
func (h *Handler) History(c *gin.Context) {
	records, err := h.engine.History.History(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Videos godoc
// @Summary List playable files in the download directory
// @Tags studio
// @Produce json
// @Success 200 {array} services.VideoAsset
// @Router /videos [get]
func (h *Handler) Videos(c *gin.Context) {
	videos, err := h.engine.History.ListVideos(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	if videos == nil {
		videos = []services.VideoAsset{}
	}
	c.JSON(http.StatusOK, videos)
}

// DeleteVideo godoc
// @Summary Delete a stored video and its history
// @Tags studio
// @Accept json
// @Produce json
// @Param request body VideoDeleteRequest true "File name"
// @Success 200 {object} OKResponse
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /videos/delete [post]
func (h *Handler) DeleteVideo(c *gin.Context) {
	var req VideoDeleteRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := h.engine.History.DeleteVideo(c.Request.Context(), req.Name); err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
