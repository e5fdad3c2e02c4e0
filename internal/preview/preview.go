// Package preview resolves what the properties pane can show for one blob:
// a read URL, a message body or a generated thumbnail.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/util"
	"evidence-explorer/pkg/apierror"
)

// Backend issues read URLs and parses message exports.
type Backend interface {
	GenerateReadURL(ctx context.Context, container string, path string) (model.ReadURL, error)
	GetMessageContent(ctx context.Context, container string, path string) (model.MessageContent, error)
}

// Opener streams the blob behind a read URL.
type Opener interface {
	Open(ctx context.Context, readURL string) (io.ReadCloser, error)
}

// Classify picks the preview kind from the blob extension.
func Classify(name string) model.PreviewKind {
	ext := util.Extension(name)

	switch {
	case util.IsImageExtension(ext):
		return model.PreviewImage
	case ext == ".pdf":
		return model.PreviewPDF
	case util.IsMessageExtension(ext):
		return model.PreviewMessage
	case util.IsVideoExtension(ext):
		return model.PreviewVideo
	case util.IsAudioExtension(ext):
		return model.PreviewAudio
	case util.IsTextExtension(ext):
		return model.PreviewText
	default:
		return model.PreviewOther
	}
}

type Service struct {
	backend        Backend
	opener         Opener
	maxSize        int
	maxSourceBytes int64
}

func NewService(backend Backend, opener Opener, maxSize int, maxSourceBytes int64) *Service {
	return &Service{backend: backend, opener: opener, maxSize: maxSize, maxSourceBytes: maxSourceBytes}
}

// Describe builds the preview descriptor of path. Message exports are parsed
// by the backend; everything else gets a read URL.
func (s *Service) Describe(ctx context.Context, container string, path string) (model.PreviewData, error) {
	data := model.PreviewData{Path: path, Kind: Classify(path)}

	if data.Kind == model.PreviewMessage {
		content, err := s.backend.GetMessageContent(ctx, container, path)
		if err != nil {
			return model.PreviewData{}, fmt.Errorf("message content of %s: %w", path, err)
		}
		data.Message = &content
		return data, nil
	}

	read, err := s.backend.GenerateReadURL(ctx, container, path)
	if err != nil {
		return model.PreviewData{}, fmt.Errorf("read URL of %s: %w", path, err)
	}
	data.ReadURL = read.FullDownloadURL

	return data, nil
}

// Thumbnailable reports whether Thumbnail can decode path.
func Thumbnailable(path string) bool {
	return util.IsThumbnailExtension(util.Extension(path))
}

// Thumbnail downloads the image at path and writes a JPEG of at most size
// pixels on its longer side to w.
func (s *Service) Thumbnail(ctx context.Context, container string, path string, size int, w io.Writer) error {
	if !Thumbnailable(path) {
		return apierror.New(apierror.CodeUnsupportedType, "thumbnails are only available for images", path, http.StatusUnsupportedMediaType)
	}

	if size <= 0 || size > s.maxSize {
		size = s.maxSize
	}

	read, err := s.backend.GenerateReadURL(ctx, container, path)
	if err != nil {
		return fmt.Errorf("read URL of %s: %w", path, err)
	}

	body, err := s.opener.Open(ctx, read.FullDownloadURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", path, err)
	}
	defer body.Close()

	var src io.Reader = body
	if s.maxSourceBytes > 0 {
		src = io.LimitReader(body, s.maxSourceBytes)
	}

	return EncodeThumbnail(src, size, w)
}
