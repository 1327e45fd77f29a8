package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bearer auth already gates this endpoint
	CheckOrigin: func(*http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// handleSyncSocket streams job state over a websocket: the current snapshot
// on connect, then every update until the job finishes or the client leaves.
func (s *Server) handleSyncSocket(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := job.Watch()
	defer cancel()

	// Drain client frames so close messages are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(resp jobResponse) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			return false
		}
		return true
	}

	snap := job.Snapshot()
	if !send(toJobResponse(snap)) {
		return
	}
	if job.Done() {
		return
	}

	for update := range updates {
		if !send(toJobResponse(update)) {
			return
		}
		if job.Done() {
			return
		}
	}
}
