package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ManouchehrRasoulli/hotserve/pkg/filehandler"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.metrics.request(endpointIndex)

	files, err := s.files.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("server :: index failed")
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := json.Marshal(files)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBody(w, http.StatusOK, protocol.ContentTypeJSON, data)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	s.metrics.request(endpointStatic)

	f, err := s.files.Resolve(r.URL.Path)
	if err != nil {
		if errors.Is(err, filehandler.ErrNoisePath) {
			writeText(w, http.StatusNotFound, "Not found")
			return
		}
		writeText(w, http.StatusNotFound, "Not Found")
		return
	}
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", f.ContentType)
	h.Set("Content-Length", strconv.FormatInt(f.Size, 10))
	if !f.LastModified.IsZero() {
		h.Set("Last-Modified", f.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if err := pump(r.Context(), w, http.NewResponseController(w), f); err != nil {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("server :: static stream ended early")
	}
}
