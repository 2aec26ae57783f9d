package validator

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/quicktools/file-processor/internal/models"
)

const maxFileNameLength = 255

// Extensions that are never processed regardless of the declared MIME type.
var dangerousExtensions = []string{".exe", ".bat", ".cmd", ".scr"}

// magicSignatures maps a declared MIME type to the byte prefixes its content
// must start with. Only the first 16 bytes of a file are consulted.
var magicSignatures = map[string][][]byte{
	"application/pdf": {[]byte("%PDF-")},
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/png":       {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	// ZIP container covers the OOXML Office formats.
	"application/zip": {{0x50, 0x4B, 0x03, 0x04}},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {{0x50, 0x4B, 0x03, 0x04}},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {{0x50, 0x4B, 0x03, 0x04}},
}

// ValidationResult collects the outcome of one validation pass. It is created
// fresh per call and never mutated afterwards.
type ValidationResult struct {
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors,omitempty"`
	DetectedMIME string   `json:"detectedMime,omitempty"`
}

// ValidateFile checks declared metadata against the tool's constraints. All
// checks run; every failure is collected rather than short-circuiting.
func ValidateFile(file models.FileInput, allowedTypes []string, maxSize int64) ValidationResult {
	var errs []string

	if !typeAllowed(file.MimeType, allowedTypes) {
		errs = append(errs, fmt.Sprintf("File type %s not supported", file.MimeType))
	}

	if file.Size() > maxSize {
		errs = append(errs, fmt.Sprintf("File size exceeds maximum limit of %d bytes", maxSize))
	}

	if len(file.Name) > maxFileNameLength {
		errs = append(errs, fmt.Sprintf("File name exceeds %d characters", maxFileNameLength))
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	for _, bad := range dangerousExtensions {
		if ext == bad {
			errs = append(errs, fmt.Sprintf("File extension %s is not allowed", ext))
			break
		}
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// ValidateContent inspects the leading bytes of the file against the known
// magic-number signature for its declared MIME type. A declared type with no
// registered signature is trivially valid; this permissive default is
// deliberate and matches the allow-list semantics of ValidateFile.
func ValidateContent(file models.FileInput) ValidationResult {
	result := ValidationResult{IsValid: true}

	head := file.Data
	if len(head) > 16 {
		head = head[:16]
	}
	if len(head) > 0 {
		result.DetectedMIME = mimetype.Detect(head).String()
	}

	signatures, ok := magicSignatures[normalizeMIME(file.MimeType)]
	if !ok {
		return result
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(head, sig) {
			return result
		}
	}

	result.IsValid = false
	result.Errors = []string{
		fmt.Sprintf("File content does not match declared type %s", file.MimeType),
	}
	return result
}

func typeAllowed(mime string, allowed []string) bool {
	mime = normalizeMIME(mime)
	for _, t := range allowed {
		if t == "*/*" || normalizeMIME(t) == mime {
			return true
		}
	}
	return false
}

func normalizeMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
