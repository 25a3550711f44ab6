package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Saver stores a rendered report under a file name and returns where it went
type Saver interface {
	Save(name string, content []byte) (string, error)
}

// FileSaver writes reports into Dir
type FileSaver struct {
	Dir string
}

// Save writes through a temporary file so a reader never sees a partial report
func (s FileSaver) Save(name string, content []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return path, nil
}

// Export renders doc and hands it to saver under its download name
func Export(doc *Document, renderer Renderer, saver Saver) (string, error) {
	content, err := Render(renderer, doc)
	if err != nil {
		return "", err
	}

	path, err := saver.Save(FileName(doc.Period, doc.GeneratedAt, renderer.Extension()), content)
	if err != nil {
		return "", &FormatError{Type: ErrTypeSave, Message: "failed to save report", Err: err, Context: doc.ReportID}
	}
	return path, nil
}
