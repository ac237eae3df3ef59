package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/parser"
	"github.com/dgallion1/pdfmarks/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// uploadResult is one accepted or refused file in an upload response.
type uploadResult struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id,omitempty"`
	Status   string `json:"status,omitempty"`
	PollURL  string `json:"poll_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// uploadError carries the status a refused upload maps to.
type uploadError struct {
	code int
	msg  string
}

func (e *uploadError) Error() string { return e.msg }

// readUpload checks the extension and size of one multipart file and reads it.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, &uploadError{http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename))}
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, &uploadError{http.StatusBadRequest, "failed to open file"}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, &uploadError{http.StatusInternalServerError, "failed to read file"}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)}
	}
	return filename, data, nil
}

// enqueue reads one file and submits its import job.
func (s *Server) enqueue(fh *multipart.FileHeader, title string) (uploadResult, int) {
	filename, data, err := s.readUpload(fh)
	res := uploadResult{Filename: filename}
	if err != nil {
		res.Error = err.Error()
		var ue *uploadError
		if errors.As(err, &ue) {
			return res, ue.code
		}
		return res, http.StatusInternalServerError
	}

	job := pipeline.NewJob(filename, title, data)
	if err := s.orchestrator.Submit(job); err != nil {
		res.Error = err.Error()
		return res, http.StatusServiceUnavailable
	}
	s.log.Debug("import queued", "job_id", job.ID, "filename", filename, "bytes", len(data))
	res.JobID, res.Status, res.PollURL = job.ID, string(pipeline.StatusQueued), pollURL(job.ID)
	return res, http.StatusAccepted
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	res, code := s.enqueue(files[0], r.FormValue("title"))
	if res.Error != "" {
		jsonError(w, res.Error, code)
		return
	}
	writeJSON(w, code, res)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleBatchUpload queues every file under "files"; refusals are reported
// per file and do not fail the request.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10<<20)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		res, _ := s.enqueue(fh, "")
		results = append(results, res)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func pollURL(jobID string) string {
	return "/api/imports/" + jobID
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// sanitizeFilename keeps only a base name safe to log and store.
func sanitizeFilename(name string) string {
	name = unsafeName.Replace(filepath.Base(name))
	if name == "" || name == "." {
		return "unnamed"
	}
	return name
}
