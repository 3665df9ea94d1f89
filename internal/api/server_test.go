package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/eduparse/internal/config"
	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/extract"
	"github.com/dgallion1/eduparse/internal/lookup"
	"github.com/dgallion1/eduparse/internal/record"
)

const catalog = `Назва дисципліни: Алгоритми
Код дисципліни: ВК 7
Мін. курс: 2

Назва дисципліни: Бази даних
Код дисципліни: ВК 9

Назва дисципліни: Мережі
Код дисципліни: ВК 11
`

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		FilesDirectory: t.TempDir(),
		MaxUploadBytes: 1 << 20,
		DefaultLimit:   extract.DefaultLimit,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *extract.Stats) {
	t.Helper()
	stats := extract.NewStats(time.Hour)
	eng := extract.NewEngine(extract.Options{Logger: quietLogger(), Stats: stats})
	return NewServer(eng, stats, quietLogger(), cfg), stats
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func postJSON(t *testing.T, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "healthy" {
		t.Errorf("status field = %v", got)
	}
}

func TestParseDisciplines_FromFilesDirectory(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	srv, stats := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/parse-disciplines", map[string]any{"filename": "catalog.txt", "limit": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["status"] != "success" {
		t.Errorf("status = %v", body["status"])
	}
	ds, _ := body["disciplines"].([]any)
	if len(ds) != 2 {
		t.Fatalf("got %d disciplines, want 2", len(ds))
	}
	if body["total_processed"] != float64(2) || body["limit_applied"] != float64(2) {
		t.Errorf("total_processed = %v, limit_applied = %v", body["total_processed"], body["limit_applied"])
	}
	first := ds[0].(map[string]any)
	if first["nameAddDisciplines"] != "Алгоритми" || first["codeAddDisciplines"] != "ВК 7" {
		t.Errorf("first discipline = %v", first)
	}
	if snap := stats.Snapshot(); snap.Count != 1 {
		t.Errorf("stats count = %d, want 1", snap.Count)
	}
}

func TestParseDisciplines_DefaultLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultLimit = 1
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	srv, _ := newTestServer(t, cfg)

	for _, limit := range []any{nil, 0, -3} {
		req := map[string]any{"filename": "catalog.txt"}
		if limit != nil {
			req["limit"] = limit
		}
		body := decode(t, postJSON(t, srv, "/api/parse-disciplines", req))
		if body["limit_applied"] != float64(1) || body["total_processed"] != float64(1) {
			t.Errorf("limit %v: limit_applied = %v, total_processed = %v", limit, body["limit_applied"], body["total_processed"])
		}
	}
}

func TestParseDisciplines_HugeLimitClamped(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	srv, _ := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/parse-disciplines", map[string]any{"filename": "catalog.txt", "limit": 2000000000})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["limit_applied"] != float64(extract.MaxLimit) || body["total_processed"] != float64(3) {
		t.Errorf("limit_applied = %v, total_processed = %v", body["limit_applied"], body["total_processed"])
	}
}

func TestParse_Rejections(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	writeFile(t, cfg.FilesDirectory, "notes.odt", "x")
	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"missing filename", "/api/parse-disciplines", map[string]any{}, http.StatusBadRequest},
		{"bad json", "/api/parse-disciplines", "not an object", http.StatusBadRequest},
		{"unknown extension", "/api/parse-disciplines", map[string]any{"filename": "notes.odt"}, http.StatusBadRequest},
		{"students from text", "/api/parse-students", map[string]any{"filename": "catalog.txt"}, http.StatusBadRequest},
		{"program from workbook", "/api/parse-educational-programs", map[string]any{"filename": "plan.xlsx"}, http.StatusBadRequest},
		{"missing file", "/api/parse-disciplines", map[string]any{"filename": "absent.pdf"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if body := decode(t, rec); body["status"] != "error" || body["detail"] == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestParse_MissingFileSuggestsCandidates(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	writeFile(t, cfg.FilesDirectory, "students.xlsx", "x")
	srv, _ := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/parse-students", map[string]any{"filename": "other.xlsx"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	got, _ := decode(t, rec)["suggestions"].([]any)
	if len(got) != 1 || got[0] != "students.xlsx" {
		t.Errorf("suggestions = %v", got)
	}
}

func TestParse_PathTraversalStaysInFilesDirectory(t *testing.T) {
	cfg := testConfig(t)
	outside := filepath.Dir(cfg.FilesDirectory)
	writeFile(t, outside, "secret.txt", catalog)
	srv, _ := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/parse-disciplines", map[string]any{"filename": "../secret.txt"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestParse_SavesOutputFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDirectory = filepath.Join(t.TempDir(), "out")
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	srv, _ := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/parse-disciplines", map[string]any{
		"filename":    "catalog.txt",
		"limit":       3,
		"output_file": "../disciplines.json",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	want := filepath.Join(cfg.OutputDirectory, "disciplines.json")
	if got := decode(t, rec)["output_file"]; got != want {
		t.Errorf("output_file = %v, want %s", got, want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  {") || !strings.Contains(string(data), "Мережі") {
		t.Errorf("saved file is not indented UTF-8 JSON:\n%s", data)
	}
	var saved []record.Discipline
	if err := json.Unmarshal(data, &saved); err != nil || len(saved) != 3 {
		t.Errorf("saved %d records, err %v", len(saved), err)
	}
}

// stubExtractor returns a canned result or error.
type stubExtractor struct {
	res *extract.Result
	err error
}

func (s *stubExtractor) Extract(ctx context.Context, h *document.Handle, kind extract.Kind, limit int) (*extract.Result, error) {
	return s.res, s.err
}

func TestParse_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"lookup unavailable", &lookup.UnavailableError{Category: lookup.Group, Err: errors.New("503")}, http.StatusBadGateway},
		{"parse failure", &extract.ParseFailure{Kind: extract.KindStudent, Err: errors.New("zip: not a valid zip file")}, http.StatusInternalServerError},
		{"unsupported", &extract.UnsupportedCombination{Format: document.FormatTabular, Kind: extract.KindProgram}, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			writeFile(t, cfg.FilesDirectory, "students.xlsx", "x")
			srv := NewServer(&stubExtractor{err: tt.err}, nil, quietLogger(), cfg)

			rec := postJSON(t, srv, "/api/parse-students", map[string]any{"filename": "students.xlsx"})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestParsePrograms_ResponseShape(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "plan.pdf", "x")
	stub := &stubExtractor{res: &extract.Result{
		Kind:            extract.KindProgram,
		Program:         &record.EducationalProgram{Name: "Інженерія програмного забезпечення", CountAddSemestr5: 4},
		MainDisciplines: []record.MainDiscipline{{Code: "ОК 1", Name: "Вища математика"}},
	}}
	srv := NewServer(stub, nil, quietLogger(), cfg)

	rec := postJSON(t, srv, "/api/parse-educational-programs", map[string]any{"filename": "plan.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	prog, _ := body["educationalProgram"].(map[string]any)
	if prog["nameEducationalProgram"] != "Інженерія програмного забезпечення" || prog["countAddSemestr5"] != float64(4) {
		t.Errorf("educationalProgram = %v", prog)
	}
	mains, _ := body["mainDisciplines"].([]any)
	if len(mains) != 1 {
		t.Errorf("mainDisciplines = %v", mains)
	}
	if _, ok := body["total_processed"]; ok {
		t.Error("program response should not carry total_processed")
	}
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxUploadBytes = 1024
	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  []byte
		want     int
	}{
		{"disciplines", map[string]string{"kind": "discipline", "limit": "3"}, "catalog.txt", []byte(catalog), http.StatusOK},
		{"bad kind", map[string]string{"kind": "teacher"}, "catalog.txt", []byte(catalog), http.StatusBadRequest},
		{"bad limit", map[string]string{"kind": "discipline", "limit": "many"}, "catalog.txt", []byte(catalog), http.StatusBadRequest},
		{"no file", map[string]string{"kind": "discipline"}, "", nil, http.StatusBadRequest},
		{"unknown extension", map[string]string{"kind": "discipline"}, "catalog.odt", []byte(catalog), http.StatusBadRequest},
		{"too large", map[string]string{"kind": "discipline"}, "big.txt", bytes.Repeat([]byte("a"), 2048), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, multipartRequest(t, tt.fields, tt.filename, tt.content))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if tt.want == http.StatusOK {
				if got := decode(t, rec)["total_processed"]; got != float64(3) {
					t.Errorf("total_processed = %v", got)
				}
			}
		})
	}
}

func TestDebugFiles(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "b.docx", "xx")
	writeFile(t, cfg.FilesDirectory, "a.xlsx", "x")
	if err := os.Mkdir(filepath.Join(cfg.FilesDirectory, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	srv, _ := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug/files", nil))
	var resp filesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.FilesDirectory != cfg.FilesDirectory {
		t.Errorf("files_directory = %q", resp.FilesDirectory)
	}
	if len(resp.Files) != 2 || resp.Files[0].Name != "a.xlsx" || resp.Files[1].Format != document.FormatStructured {
		t.Errorf("files = %+v", resp.Files)
	}
}

func TestDebugFiles_MissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.FilesDirectory = filepath.Join(cfg.FilesDirectory, "absent")
	srv, _ := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug/files", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"files":[]`) {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestExtractStats(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.FilesDirectory, "catalog.txt", catalog)
	srv, _ := newTestServer(t, cfg)
	postJSON(t, srv, "/api/parse-disciplines", map[string]any{"filename": "catalog.txt"})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/extract", nil))
	var snap extract.StatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Count != 1 || snap.ByKind["discipline"] != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.ParserAPIKey = "s3cret"
	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/debug/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health behind auth: status = %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"plan.pdf":          "plan.pdf",
		"../../etc/passwd":  "passwd",
		"dir/sub/file.xlsx": "file.xlsx",
		"a..b.txt":          "a_b.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
