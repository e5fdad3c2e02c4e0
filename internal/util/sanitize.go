package util

import (
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode"

	"evidence-explorer/pkg/apierror"
)

const maxNameRunes = 255

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// CleanUploadName turns the name of a locally selected file into a single
// blob path segment. Control and invisible characters are dropped and
// characters that break path segmentation are replaced.
func CleanUploadName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.New(apierror.CodeBadRequest, "file name cannot be empty", "", http.StatusBadRequest)
	}

	// Browsers may send a full client path; only the base name is uploaded.
	trimmed = path.Base(strings.ReplaceAll(trimmed, `\`, "/"))

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidNameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", apierror.New(apierror.CodeBadRequest, "file name is invalid after cleaning", name, http.StatusBadRequest)
	}

	runes := []rune(cleaned)
	if len(runes) > maxNameRunes {
		cleaned = string(runes[:maxNameRunes])
	}

	return cleaned, nil
}

// ValidateBlobPath rejects object paths that cannot address a blob inside a
// container: empty paths, control characters and parent segments.
func ValidateBlobPath(blobPath string) (string, error) {
	normalized := strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(blobPath), `\`, "/"), "/")
	if normalized == "" {
		return "", apierror.New(apierror.CodeBadRequest, "path is required", "", http.StatusBadRequest)
	}

	for _, char := range normalized {
		if unicode.IsControl(char) {
			return "", apierror.New(apierror.CodeBadRequest, "path contains invalid characters", blobPath, http.StatusBadRequest)
		}
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." || segment == "." {
			return "", apierror.New(apierror.CodeBadRequest, "path cannot contain relative segments", blobPath, http.StatusBadRequest)
		}
	}

	return normalized, nil
}

func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
