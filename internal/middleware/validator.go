package middleware

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Upload validation utilities

// MaxUploadBytes caps one image upload at 10 MiB.
const MaxUploadBytes = 10 << 20

// allowedImageTypes maps accepted content types to their canonical
// extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// normalizeContentType lowercases and strips any media-type parameters.
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ValidateImageContentType checks the declared content type against the
// supported image formats.
func ValidateImageContentType(ct string) error {
	if _, ok := allowedImageTypes[normalizeContentType(ct)]; !ok {
		return fmt.Errorf("unsupported content type: %s (allowed: jpeg, png, gif, webp)", ct)
	}
	return nil
}

// ValidateImageSize rejects empty and oversized payloads.
func ValidateImageSize(n int64) error {
	if n <= 0 {
		return fmt.Errorf("empty upload")
	}
	if n > MaxUploadBytes {
		return fmt.Errorf("upload exceeds %d bytes", int64(MaxUploadBytes))
	}
	return nil
}

// ExtensionFor picks an object-key extension: the original filename's when
// present, otherwise the content type's canonical one.
func ExtensionFor(ct, filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	if ext, ok := allowedImageTypes[normalizeContentType(ct)]; ok {
		return ext
	}
	return ".jpg"
}
