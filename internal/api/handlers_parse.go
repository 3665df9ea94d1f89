package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/extract"
	"github.com/dgallion1/eduparse/internal/record"
)

// parseRequest names a file under the files directory.
type parseRequest struct {
	Filename   string `json:"filename"`
	Limit      *int   `json:"limit,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
}

type programBody struct {
	Program         *record.EducationalProgram `json:"educationalProgram"`
	MainDisciplines []record.MainDiscipline    `json:"mainDisciplines"`
}

// parseHandler serves the three parse endpoints, which differ only in kind.
func (s *Server) parseHandler(kind extract.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req parseRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Filename == "" {
			jsonError(w, "filename is required", http.StatusBadRequest)
			return
		}

		name := sanitizeFilename(req.Filename)
		format, err := document.FormatForFile(name)
		if err != nil || !extract.Supports(format, kind) {
			jsonError(w, fmt.Sprintf("file %s cannot be parsed as %s", name, kind), http.StatusBadRequest)
			return
		}

		data, err := os.ReadFile(filepath.Join(s.cfg.FilesDirectory, name))
		if errors.Is(err, fs.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody{
				Status:      "error",
				Detail:      fmt.Sprintf("file %s not found in %s", name, s.cfg.FilesDirectory),
				Suggestions: s.candidates(kind),
			})
			return
		}
		if err != nil {
			s.log.Error("read input file", "file", name, "error", err)
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}

		limit := s.limitOr(req.Limit)
		h := &document.Handle{Name: name, Format: format, Data: data}
		s.respond(w, r, h, kind, limit, req.OutputFile)
	}
}

// handleUpload extracts from a multipart upload held in memory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes + (1 << 20)); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind, err := extract.ParseKind(r.FormValue("kind"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var limit *int
	if v := r.FormValue("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = &n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file too large (max %d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	h, err := document.NewHandle(sanitizeFilename(header.Filename), data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.respond(w, r, h, kind, s.limitOr(limit), r.FormValue("output_file"))
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, h *document.Handle, kind extract.Kind, limit int, outputFile string) {
	res, err := s.extractor.Extract(r.Context(), h, kind, limit)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	body := map[string]any{"status": "success"}
	var records any
	switch kind {
	case extract.KindStudent:
		records = res.Students
		body["students"] = res.Students
	case extract.KindDiscipline:
		records = res.Disciplines
		body["disciplines"] = res.Disciplines
	case extract.KindProgram:
		records = programBody{Program: res.Program, MainDisciplines: res.MainDisciplines}
		body["educationalProgram"] = res.Program
		body["mainDisciplines"] = res.MainDisciplines
	}
	if kind != extract.KindProgram {
		body["total_processed"] = res.Count()
		body["limit_applied"] = limit
	}

	if outputFile != "" && s.cfg.OutputDirectory != "" {
		path, err := s.saveJSON(records, outputFile)
		if err != nil {
			s.log.Error("save output", "file", outputFile, "error", err)
			jsonError(w, "failed to save output file", http.StatusInternalServerError)
			return
		}
		body["output_file"] = path
	}

	writeJSON(w, http.StatusOK, body)
}

// saveJSON writes v as indented JSON under the output directory.
func (s *Server) saveJSON(v any, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.OutputDirectory, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	path := filepath.Join(s.cfg.OutputDirectory, sanitizeFilename(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

func (s *Server) limitOr(limit *int) int {
	if limit == nil || *limit <= 0 {
		return s.cfg.DefaultLimit
	}
	return min(*limit, extract.MaxLimit)
}
