package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrFileMissing = errors.New("file not found")

// VideoFilePath is where a rendition lives: <dir>/<videoId>_<quality>.mp4
func VideoFilePath(dir, videoID, quality string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", videoID, quality))
}

// OpenRegularFile opens path for reading and refuses directories
func OpenRegularFile(path string) (*os.File, os.FileInfo, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrFileMissing
	}
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, nil, ErrFileMissing
	}
	return file, info, nil
}

// SectionStream reads [start, start+length) of file and closes the file
// once the response body is done with it
type SectionStream struct {
	io.Reader
	file *os.File
}

func NewSectionStream(file *os.File, start, length int64) *SectionStream {
	return &SectionStream{Reader: io.NewSectionReader(file, start, length), file: file}
}

func (s *SectionStream) Close() error {
	return s.file.Close()
}

// HumanSize renders a byte count as B, KB, MB or GB
func HumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(size)/float64(div), "KMG"[exp])
}
