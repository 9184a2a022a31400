// Package web provides the HTTP control panel, status API and live feed for the traffic-signal daemon.
package web

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sweeney/traffic-signal/internal/logic"
	"github.com/sweeney/traffic-signal/internal/render"
	"github.com/sweeney/traffic-signal/internal/status"
)

// Controller is the part of the signal controller the web surface drives.
type Controller interface {
	Dispatch(cmd logic.Command)
	State() logic.SignalState
}

// Server serves the control panel over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctl        Controller
	hub        *hub
	router     chi.Router
}

// New creates a Server that reads state from the given tracker and sends
// commands to ctl.
func New(addr string, tracker *status.Tracker, ctl Controller) *Server {
	s := &Server{tracker: tracker, ctl: ctl, hub: newHub()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.With(middleware.NoCache).Get("/signal.png", s.handleSignal)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Post("/start", s.handleCommand(logic.ActionStart))
		r.Post("/stop", s.handleCommand(logic.ActionStop))
		r.Post("/emergency", s.handleCommand(logic.ActionEmergency))
		r.Post("/density/{level}", s.handleDensity)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.close()
	return err
}

// Broadcast sends payload to every connected websocket client.
func (s *Server) Broadcast(payload []byte) {
	s.hub.broadcast(payload)
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// snapshot reads the tracker but takes the signal state straight from the
// controller, so a response reflects a command dispatched just before it.
func (s *Server) snapshot() status.Snapshot {
	snap := s.tracker.Snapshot()
	if s.ctl != nil {
		st := s.ctl.State()
		snap.Banner = logic.NextBanner(snap.Banner, snap.State, st)
		snap.State = st
	}
	return snap
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.snapshot()); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status.FormatJSON(s.snapshot()))
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := render.Signal(&buf, s.snapshot().State); err != nil {
		log.Printf("web: render signal: %v", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r, status.FormatCompactJSON(s.snapshot()))
}

func (s *Server) handleCommand(action logic.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.dispatch(w, logic.Command{Action: action})
	}
}

func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	d, err := logic.ParseDensity(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.dispatch(w, logic.Command{Action: logic.ActionDensity, Density: d})
}

func (s *Server) dispatch(w http.ResponseWriter, cmd logic.Command) {
	if s.ctl == nil {
		writeError(w, http.StatusServiceUnavailable, "controller not available")
		return
	}
	s.ctl.Dispatch(cmd)
	writeJSON(w, http.StatusOK, status.FormatJSON(s.snapshot()))
}
