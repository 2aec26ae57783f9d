package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quicktools/file-processor/internal/models"
)

// Manifest is the JSON envelope describing one completed processing job. It
// is stored next to the result object and surfaced by the status endpoint.
type Manifest struct {
	TaskID       string    `json:"taskId"`
	Tool         string    `json:"tool"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256"`
	SourceName   string    `json:"sourceName"`
	SourceSize   int64     `json:"sourceSize"`
	ProcessingMs int64     `json:"processingMs"`
	ProcessedAt  time.Time `json:"processedAt"`
}

// Build derives a manifest from a finished job.
func Build(taskID, tool string, input models.FileInput, result *models.ProcessedFile, elapsed time.Duration) (*Manifest, error) {
	if result == nil {
		return nil, fmt.Errorf("no result to describe")
	}

	sum := sha256.Sum256(result.Data)

	return &Manifest{
		TaskID:       taskID,
		Tool:         tool,
		FileName:     result.FileName,
		MimeType:     result.MimeType,
		Size:         result.Size,
		SHA256:       hex.EncodeToString(sum[:]),
		SourceName:   input.Name,
		SourceSize:   input.Size(),
		ProcessingMs: elapsed.Milliseconds(),
		ProcessedAt:  time.Now(),
	}, nil
}

// JSON serializes the manifest.
func (m *Manifest) JSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Decode reads a manifest from r.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
