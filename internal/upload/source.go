package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source is a local file selected for upload. Open may be called once per
// attempt; each call returns a reader positioned at the start.
type Source interface {
	Name() string
	Size() int64
	Open() (io.ReadSeekCloser, error)
}

// FileSource reads from the local filesystem.
type FileSource struct {
	path string
	size int64
}

func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &FileSource{path: path, size: info.Size()}, nil
}

func (s *FileSource) Name() string { return filepath.Base(s.path) }
func (s *FileSource) Size() int64  { return s.size }

func (s *FileSource) Open() (io.ReadSeekCloser, error) {
	return os.Open(s.path)
}

// MemorySource holds a file received in a multipart request.
type MemorySource struct {
	name string
	data []byte
}

func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (s *MemorySource) Name() string { return s.name }
func (s *MemorySource) Size() int64  { return int64(len(s.data)) }

func (s *MemorySource) Open() (io.ReadSeekCloser, error) {
	return nopSeekCloser{bytes.NewReader(s.data)}, nil
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }
