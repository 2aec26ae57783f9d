package handlers

import (
	"github.com/quicktools/file-processor/internal/service/jobs"
	"github.com/quicktools/file-processor/pkg/logger"
)

type Handlers struct {
	Tool *ToolHandler
}

func NewHandlers(jobService jobs.Service, log logger.Logger, syncMaxBytes int64) *Handlers {
	return &Handlers{
		Tool: NewToolHandler(jobService, log, syncMaxBytes),
	}
}
