package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sharevault/internal/logger"
	"sharevault/internal/models"
	"sharevault/internal/pipeline"
)

const maxUploadBytes = 32 << 20

const (
	msgNoFile       = "No file uploaded"
	msgBadExtension = "Only .txt files are allowed"
	msgTooLarge     = "File too large"
	msgInternal     = "Internal Server Error"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.WithRequest(s.log, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		log.WithError(err).Debug("upload without file")
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		writeError(w, http.StatusBadRequest, msgBadExtension)
		return
	}

	path, err := s.store(file)
	if err != nil {
		log.WithError(err).Error("failed to store upload")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if s.cfg.DeleteUploads() {
		defer func() {
			if err := os.Remove(path); err != nil {
				log.WithError(err).Warn("failed to remove upload")
			}
		}()
	}

	links, err := s.analyser.AnalyseFile(r.Context(), path, uploadOptions(r))
	if err != nil {
		log.WithError(err).Error("analysis failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	log.WithField("links", len(links)).Info("upload analysed")
	writeJSON(w, http.StatusOK, models.UploadResponse{FileContents: links})
}

// store copies the upload to a fresh file in the upload directory.
func (s *Server) store(src io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, uuid.NewString()+".txt")

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func uploadOptions(r *http.Request) pipeline.Options {
	return pipeline.Options{
		ExpandSpotify: formBool(r, "expand_spotify"),
		ExpandYoutube: formBool(r, "expand_youtube"),
		ExpandGeneral: formBool(r, "expand_general"),
	}
}

// formBool reads a boolean form field; absent or unparsable values are true.
func formBool(r *http.Request, key string) bool {
	v := r.FormValue(key)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}
