package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/SmitUplenchwar2687/radarplay/internal/library"
	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
	"github.com/SmitUplenchwar2687/radarplay/internal/session"
)

// recordingJSON is a library entry as listed by the API.
type recordingJSON struct {
	library.Entry
	SizeHuman string `json:"size_human"`
}

func toRecordingJSON(e library.Entry) recordingJSON {
	return recordingJSON{Entry: e, SizeHuman: humanize.Bytes(uint64(e.Size))}
}

// settingsJSON is the body of GET and PUT /api/settings.
type settingsJSON struct {
	Looping *bool `json:"looping"`
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.library.List()
	if err != nil {
		s.logger.Error("listing recordings", "error", err)
		writeError(w, http.StatusInternalServerError, "listing recordings failed")
		return
	}
	out := make([]recordingJSON, len(entries))
	for i, e := range entries {
		out[i] = toRecordingJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUploadRecording stores the raw request body.
// Path: POST /api/recordings?name={name}
func (s *Server) handleUploadRecording(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	entry, err := s.library.Save(name, r.Body, s.maxUpload)
	switch {
	case errors.Is(err, library.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, library.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		s.logger.Error("storing upload", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "storing recording failed")
		return
	}

	s.logger.Info("recording uploaded", "name", entry.Name, "size", humanize.Bytes(uint64(entry.Size)))
	writeJSON(w, http.StatusCreated, toRecordingJSON(entry))
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	err := s.library.Delete(name)
	switch {
	case errors.Is(err, library.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("deleting recording", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting recording failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleLoadRecording decodes a stored recording and makes it the active
// session. Decode failures answer 422 with the error kind.
func (s *Server) handleLoadRecording(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.library.Read(name)
	switch {
	case errors.Is(err, library.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("reading recording", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "reading recording failed")
		return
	}

	res, err := s.sessions.Load(r.Context(), name, data)
	if err != nil {
		var de *recording.DecodeError
		if errors.As(err, &de) {
			s.logger.Warn("rejected recording", "name", name, "kind", de.Kind.String(), "error", err)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
				"kind":  de.Kind.String(),
			})
			return
		}
		s.logger.Error("loading recording", "name", name, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.sessions.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.sessions.Pause())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Stop(r.Context()); err != nil {
		// Playback has stopped either way; only the host didn't hear.
		s.logger.Warn("stop", "error", err)
	}
	writeJSON(w, http.StatusOK, s.sessions.Status())
}

// handleSeek moves playback.
// Path: POST /api/seek?position_ms={ms}
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.ParseInt(r.URL.Query().Get("position_ms"), 10, 64)
	if err != nil || pos < 0 {
		writeError(w, http.StatusBadRequest, "position_ms must be a non-negative integer")
		return
	}
	s.control(w, s.sessions.Seek(pos))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Status())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	looping := s.sessions.Looping()
	writeJSON(w, http.StatusOK, settingsJSON{Looping: &looping})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsJSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}
	if body.Looping == nil {
		writeError(w, http.StatusBadRequest, "looping is required")
		return
	}
	s.sessions.SetLooping(*body.Looping)
	s.handleGetSettings(w, r)
}

// control answers a playback control with the resulting status. A control
// with nothing loaded is a no-op, like any other inapplicable control.
func (s *Server) control(w http.ResponseWriter, err error) {
	if err != nil && !errors.Is(err, session.ErrNoRecording) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Status())
}
