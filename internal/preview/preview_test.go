package preview

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/model"
	"evidence-explorer/pkg/apierror"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GenerateReadURL(ctx context.Context, container string, path string) (model.ReadURL, error) {
	args := m.Called(ctx, container, path)
	return args.Get(0).(model.ReadURL), args.Error(1)
}

func (m *mockBackend) GetMessageContent(ctx context.Context, container string, path string) (model.MessageContent, error) {
	args := m.Called(ctx, container, path)
	return args.Get(0).(model.MessageContent), args.Error(1)
}

type bytesOpener struct {
	data []byte
	url  string
}

func (o *bytesOpener) Open(_ context.Context, readURL string) (io.ReadCloser, error) {
	o.url = readURL
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

func pngImage(t *testing.T, width int, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]model.PreviewKind{
		"scene/IMG_1.JPG":  model.PreviewImage,
		"report.pdf":       model.PreviewPDF,
		"mail/export.eml":  model.PreviewMessage,
		"mail/outlook.msg": model.PreviewMessage,
		"cctv.mp4":         model.PreviewVideo,
		"call.wav":         model.PreviewAudio,
		"notes.txt":        model.PreviewText,
		"disk.e01":         model.PreviewOther,
	}

	for name, kind := range cases {
		require.Equal(t, kind, Classify(name), name)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("files get a read URL", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("GenerateReadURL", ctx, "case", "report.pdf").Return(model.ReadURL{FullDownloadURL: "https://blob/report.pdf?sig=1"}, nil)

		data, err := NewService(backend, nil, 256, 0).Describe(ctx, "case", "report.pdf")
		require.NoError(t, err)
		require.Equal(t, model.PreviewPDF, data.Kind)
		require.Equal(t, "https://blob/report.pdf?sig=1", data.ReadURL)
		require.Nil(t, data.Message)
	})

	t.Run("messages are parsed by the backend", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("GetMessageContent", ctx, "case", "mail/1.eml").Return(model.MessageContent{Subject: "Invoice", Text: "see attached"}, nil)

		data, err := NewService(backend, nil, 256, 0).Describe(ctx, "case", "mail/1.eml")
		require.NoError(t, err)
		require.Equal(t, "Invoice", data.Message.Subject)
		backend.AssertNotCalled(t, "GenerateReadURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("backend errors keep their code", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("GenerateReadURL", ctx, "case", "a.txt").Return(model.ReadURL{}, apierror.New(apierror.CodeForbidden, "denied", "", 403))

		_, err := NewService(backend, nil, 256, 0).Describe(ctx, "case", "a.txt")
		require.True(t, apierror.HasCode(err, apierror.CodeForbidden))
	})
}

func TestThumbnail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("scales down to the requested size", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("GenerateReadURL", ctx, "case", "photo.png").Return(model.ReadURL{FullDownloadURL: "https://blob/photo.png?sig=1"}, nil)
		opener := &bytesOpener{data: pngImage(t, 200, 100)}

		var out bytes.Buffer
		require.NoError(t, NewService(backend, opener, 512, 0).Thumbnail(ctx, "case", "photo.png", 50, &out))

		decoded, err := jpeg.Decode(&out)
		require.NoError(t, err)
		require.Equal(t, 50, decoded.Bounds().Dx())
		require.Equal(t, 25, decoded.Bounds().Dy())
		require.Equal(t, "https://blob/photo.png?sig=1", opener.url)
	})

	t.Run("never enlarges", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, EncodeThumbnail(bytes.NewReader(pngImage(t, 10, 20)), 256, &out))

		decoded, err := jpeg.Decode(&out)
		require.NoError(t, err)
		require.Equal(t, 10, decoded.Bounds().Dx())
	})

	t.Run("rejects non-images before any call", func(t *testing.T) {
		backend := &mockBackend{}

		err := NewService(backend, nil, 256, 0).Thumbnail(ctx, "case", "report.pdf", 64, io.Discard)
		require.True(t, apierror.HasCode(err, apierror.CodeUnsupportedType))
		backend.AssertNotCalled(t, "GenerateReadURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("undecodable data is reported", func(t *testing.T) {
		err := EncodeThumbnail(bytes.NewReader([]byte("not an image")), 64, io.Discard)
		require.Error(t, err)
	})
}
