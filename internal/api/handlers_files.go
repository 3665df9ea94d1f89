package api

import (
	"net/http"
	"os"
	"sort"

	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/extract"
)

type fileEntry struct {
	Name   string          `json:"name"`
	Size   int64           `json:"size"`
	Format document.Format `json:"format,omitempty"`
}

type filesResponse struct {
	FilesDirectory string      `json:"files_directory"`
	Files          []fileEntry `json:"files"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.listFiles()
	if err != nil {
		s.log.Error("list files", "dir", s.cfg.FilesDirectory, "error", err)
		jsonError(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, filesResponse{FilesDirectory: s.cfg.FilesDirectory, Files: files})
}

func (s *Server) listFiles() ([]fileEntry, error) {
	entries, err := os.ReadDir(s.cfg.FilesDirectory)
	if os.IsNotExist(err) {
		return []fileEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		f, _ := document.FormatForFile(e.Name())
		files = append(files, fileEntry{Name: e.Name(), Size: info.Size(), Format: f})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// candidates lists files that could be parsed as kind, for 404 hints.
func (s *Server) candidates(kind extract.Kind) []string {
	files, err := s.listFiles()
	if err != nil {
		return nil
	}
	var names []string
	for _, f := range files {
		if f.Format != "" && extract.Supports(f.Format, kind) {
			names = append(names, f.Name)
		}
	}
	return names
}
