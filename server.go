package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"voxchat/audio"
	"voxchat/export"
	"voxchat/models"
	"voxchat/pipeline"
	"voxchat/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// whisper rejects uploads above 25MB
const maxUploadSize = 25 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	logger   *slog.Logger
	ctrl     *pipeline.Controller
	sess     *session
	registry *prometheus.Registry
}

func (srv *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Get("/ping", srv.pingHandler)
	r.Get("/state", srv.stateHandler)
	r.Get("/log", srv.logHandler)
	r.Get("/log/export", srv.exportHandler)
	r.Get("/conversations", srv.conversationsHandler)
	r.Get("/events", srv.eventsHandler)
	r.Handle("/metrics", promhttp.HandlerFor(srv.registry, promhttp.HandlerOpts{}))
	r.Group(func(pr chi.Router) {
		pr.Use(httprate.LimitByIP(60, time.Minute))
		pr.Post("/record/start", srv.recordStartHandler)
		pr.Post("/record/stop", srv.recordStopHandler)
		pr.Post("/submit", srv.submitHandler)
		pr.Post("/voice", srv.voiceHandler)
		pr.Post("/playback/stop", srv.playbackStopHandler)
		pr.Post("/playback/last", srv.playbackLastHandler)
		pr.Post("/reset", srv.resetHandler)
		pr.Post("/conversations/{id}/load", srv.loadConversationHandler)
		pr.Delete("/conversations/{id}", srv.removeConversationHandler)
	})
	return r
}

func (srv *Server) ListenToRequests(addr string, writeTimeout time.Duration) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  time.Second * 30,
		WriteTimeout: writeTimeout,
	}
	srv.logger.Info("Listening", "addr", server.Addr)
	return server.ListenAndServe()
}

func (srv *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.logger.Error("failed to write response", "error", err)
	}
}

func (srv *Server) writeError(w http.ResponseWriter, err error) {
	srv.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrBusy), errors.Is(err, models.ErrAlreadyRecording),
		errors.Is(err, models.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, models.ErrDeviceUnavailable), errors.Is(err, models.ErrPlaybackFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, models.ErrNothingToReplay):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (srv *Server) pingHandler(w http.ResponseWriter, req *http.Request) {
	if _, err := w.Write([]byte("pong")); err != nil {
		srv.logger.Error("server ping", "error", err)
	}
}

func (srv *Server) stateHandler(w http.ResponseWriter, req *http.Request) {
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) logHandler(w http.ResponseWriter, req *http.Request) {
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Entries())
}

func (srv *Server) exportHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName(time.Now())))
	if _, err := io.WriteString(w, export.Text(srv.ctrl.Store().Entries())); err != nil {
		srv.logger.Error("failed to write export", "error", err)
	}
}

func (srv *Server) recordStartHandler(w http.ResponseWriter, req *http.Request) {
	if err := srv.ctrl.Start(); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

// recordStopHandler answers once the whole turn is over.
func (srv *Server) recordStopHandler(w http.ResponseWriter, req *http.Request) {
	if err := srv.ctrl.Stop(req.Context()); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) submitHandler(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadSize)
	file, header, err := req.FormFile("file")
	if err != nil {
		srv.writeError(w, fmt.Errorf("no audio in field 'file': %w", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		srv.writeError(w, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	buf := models.NewAudioBuffer(data, audio.DetectMIME(header.Filename, data))
	srv.logger.Debug("audio submitted", "name", header.Filename, "mime", buf.MIME(), "bytes", buf.Len())
	if err := srv.ctrl.SubmitRecordedAudio(req.Context(), buf); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

type voiceReq struct {
	Enabled bool `json:"enabled"`
}

func (srv *Server) voiceHandler(w http.ResponseWriter, req *http.Request) {
	var vr voiceReq
	if err := json.NewDecoder(req.Body).Decode(&vr); err != nil {
		srv.writeError(w, fmt.Errorf("bad voice request: %w", err))
		return
	}
	srv.ctrl.SetVoiceOutput(vr.Enabled)
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) playbackStopHandler(w http.ResponseWriter, req *http.Request) {
	srv.ctrl.StopPlayback()
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) playbackLastHandler(w http.ResponseWriter, req *http.Request) {
	if err := srv.ctrl.PlayLast(); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) resetHandler(w http.ResponseWriter, req *http.Request) {
	if err := newConversation(srv.ctrl, srv.sess); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) conversationsHandler(w http.ResponseWriter, req *http.Request) {
	convs, err := srv.sess.conversations()
	if err != nil {
		srv.logger.Error("failed to list conversations", "error", err)
		srv.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	srv.writeJSON(w, http.StatusOK, convs)
}

func (srv *Server) loadConversationHandler(w http.ResponseWriter, req *http.Request) {
	if _, err := openConversation(srv.ctrl, srv.sess, chi.URLParam(req, "id")); err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writeJSON(w, http.StatusOK, srv.ctrl.Store().Snapshot())
}

func (srv *Server) removeConversationHandler(w http.ResponseWriter, req *http.Request) {
	if err := removeConversation(srv.ctrl, srv.sess, chi.URLParam(req, "id")); err != nil {
		srv.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// eventsHandler streams every snapshot over a websocket until the client
// goes away.
func (srv *Server) eventsHandler(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		srv.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	snaps, unsubscribe := srv.ctrl.Store().Subscribe()
	defer unsubscribe()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				srv.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-closed:
			return
		case <-req.Context().Done():
			return
		}
	}
}
