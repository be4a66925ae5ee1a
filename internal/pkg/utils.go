package pkg

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDFromParam parses a hex object ID, mapping failures to a uniform
// validation error so malformed IDs do not leak storage details.
func ObjectIDFromParam(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidInput.WithDetails(map[string]interface{}{
			"message": "invalid ID format",
		})
	}
	return id, nil
}

// FormatFileSize renders a byte count for human-readable messages.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename strips path separators and control characters so a
// client-supplied name is safe to embed in storage keys and headers.
func SanitizeFilename(filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(filename, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "unnamed"
	}
	return name
}
