package util

import (
	"mime"
	"path"
	"strings"
)

// Extension returns the lower-cased extension of a blob name, including the dot.
func Extension(name string) string {
	return strings.ToLower(path.Ext(name))
}

func IsThumbnailExtension(extension string) bool {
	switch extension {
	case ".jpg", ".jpeg", ".jpe", ".jfif", ".png", ".gif", ".webp", ".bmp", ".dib", ".tiff", ".tif":
		return true
	default:
		return false
	}
}

func IsImageExtension(extension string) bool {
	if IsThumbnailExtension(extension) {
		return true
	}

	switch extension {
	case ".svg", ".ico", ".avif", ".heic", ".heif":
		return true
	default:
		return false
	}
}

func IsVideoExtension(extension string) bool {
	switch extension {
	case ".mp4", ".m4v", ".mov", ".webm", ".mkv", ".avi", ".wmv", ".mpeg", ".mpg", ".3gp", ".ogv":
		return true
	default:
		return false
	}
}

func IsAudioExtension(extension string) bool {
	switch extension {
	case ".mp3", ".wav", ".ogg", ".oga", ".m4a", ".aac", ".flac", ".wma", ".opus":
		return true
	default:
		return false
	}
}

func IsTextExtension(extension string) bool {
	switch extension {
	case ".txt", ".log", ".csv", ".json", ".xml", ".md", ".yaml", ".yml", ".ini", ".html", ".htm":
		return true
	default:
		return false
	}
}

// IsMessageExtension covers mail exports whose content the backend parses.
func IsMessageExtension(extension string) bool {
	switch extension {
	case ".eml", ".msg":
		return true
	default:
		return false
	}
}

// ContentType guesses the content type stored with an uploaded blob.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(Extension(name)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
