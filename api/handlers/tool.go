package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/internal/service/jobs"
	"github.com/quicktools/file-processor/pkg/logger"
)

// ToolHandler exposes the processing pipeline over HTTP.
type ToolHandler struct {
	service      jobs.Service
	logger       logger.Logger
	syncMaxBytes int64
}

// ProcessResponse describes a queued task.
type ProcessResponse struct {
	TaskID    string `json:"taskId"`
	Tool      string `json:"tool"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"fileSize"`
	CreatedAt string `json:"createdAt"`
}

// ErrorResponse carries a classified failure to the client.
type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	Recoverable *bool  `json:"recoverable,omitempty"`
}

func NewToolHandler(service jobs.Service, log logger.Logger, syncMaxBytes int64) *ToolHandler {
	return &ToolHandler{
		service:      service,
		logger:       log,
		syncMaxBytes: syncMaxBytes,
	}
}

// ProcessTool accepts a multipart upload and queues it for processing.
func (h *ToolHandler) ProcessTool(c *gin.Context) {
	input, opts, toolID, ok := h.parseRequest(c)
	if !ok {
		return
	}

	task, err := h.service.Submit(c.Request.Context(), input, toolID, opts)
	if err != nil {
		h.handleError(c, "Failed to submit task", err)
		return
	}

	c.JSON(http.StatusAccepted, ProcessResponse{
		TaskID:    task.ID,
		Tool:      task.Tool,
		Status:    string(task.Status),
		Filename:  input.Name,
		FileSize:  input.Size(),
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ProcessSync runs small files straight through the pipeline and streams the
// result back in the response.
func (h *ToolHandler) ProcessSync(c *gin.Context) {
	input, opts, toolID, ok := h.parseRequest(c)
	if !ok {
		return
	}

	if input.Size() > h.syncMaxBytes {
		h.respondError(c, http.StatusRequestEntityTooLarge, "File too large for synchronous processing", nil)
		return
	}

	result, err := h.service.Processor().ProcessFile(c.Request.Context(), input, toolID, opts)
	if err != nil {
		h.handleError(c, "Failed to process file", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// GetStatus reports the task's lifecycle state and progress.
func (h *ToolHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.respondError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.Status(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"metadata":  task.Metadata,
		"createdAt": task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updatedAt": task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// DownloadResult streams the processed file of a completed task.
func (h *ToolHandler) DownloadResult(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.respondError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	result, m, err := h.service.Result(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, "Failed to get result", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("X-Result-Sha256", m.SHA256)
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// CancelTask removes a pending task.
func (h *ToolHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.respondError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), taskID); err != nil {
		h.handleError(c, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// parseRequest extracts the primary file, tool identifier, options JSON, and
// any additional files from the multipart form.
func (h *ToolHandler) parseRequest(c *gin.Context) (models.FileInput, models.Options, string, bool) {
	var empty models.FileInput

	toolID := c.PostForm("tool")
	if toolID == "" {
		toolID = c.Param("tool")
	}
	if toolID == "" {
		h.respondError(c, http.StatusBadRequest, "Tool identifier is required", nil)
		return empty, models.Options{}, "", false
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid file upload", err)
		return empty, models.Options{}, "", false
	}
	defer file.Close()

	input, err := readUpload(file, header)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "Failed to read upload", err)
		return empty, models.Options{}, "", false
	}

	var opts models.Options
	if raw := c.PostForm("options"); raw != "" {
		// Unknown option keys are ignored on purpose.
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			h.respondError(c, http.StatusBadRequest, "Invalid options JSON", err)
			return empty, models.Options{}, "", false
		}
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, extraHeader := range form.File["files"] {
			extraFile, err := extraHeader.Open()
			if err != nil {
				h.respondError(c, http.StatusBadRequest, "Failed to read additional upload", err)
				return empty, models.Options{}, "", false
			}
			extra, err := readUpload(extraFile, extraHeader)
			extraFile.Close()
			if err != nil {
				h.respondError(c, http.StatusBadRequest, "Failed to read additional upload", err)
				return empty, models.Options{}, "", false
			}
			opts.AdditionalFiles = append(opts.AdditionalFiles, extra)
		}
	}

	return input, opts, toolID, true
}

func readUpload(file multipart.File, header *multipart.FileHeader) (models.FileInput, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return models.FileInput{}, err
	}
	return models.FileInput{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// handleError maps pipeline errors onto HTTP statuses.
func (h *ToolHandler) handleError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError

	var pe *errs.ProcessingError
	if errors.As(err, &pe) {
		switch pe.Code {
		case errs.CodeValidation:
			status = http.StatusBadRequest
		case errs.CodeToolNotFound:
			status = http.StatusNotFound
		case errs.CodeUnsupported:
			status = http.StatusUnprocessableEntity
		case errs.CodeOutOfMemory:
			status = http.StatusRequestEntityTooLarge
		}

		h.logger.Warn(message,
			logger.String("path", c.Request.URL.Path),
			logger.String("code", pe.Code),
			logger.Error(err),
		)

		recoverable := pe.Recoverable
		c.JSON(status, ErrorResponse{
			Error:       pe.Message,
			Message:     message,
			Code:        pe.Code,
			Recoverable: &recoverable,
		})
		return
	}

	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	h.respondError(c, status, message, err)
}

func (h *ToolHandler) respondError(c *gin.Context, status int, message string, err error) {
	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
