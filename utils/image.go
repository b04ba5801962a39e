package utils

import (
	"mime"
	"strings"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsValidImageType accepts raster image media types, with or without parameters.
func IsValidImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return imageTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}
