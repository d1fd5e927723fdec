package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/command"
)

const shutdownTimeout = 5 * time.Second

// Server exposes a Hub over HTTP and websockets.
//
//	POST /games                      create a game
//	POST /games/{code}/slots/{slot}  claim p1 or p2, returning a bearer token
//	GET  /games/{code}/log           the ordered log so far
//	GET  /games/{code}/ws            ?slot=&token= connect a replica
type Server struct {
	hub      *Hub
	cfg      config.RelayConfig
	router   *mux.Router
	upgrader websocket.Upgrader
	http     *http.Server
	logger   *zap.Logger
}

// NewServer creates a Server for hub.
//
// Precondition: hub and logger must be non-nil.
func NewServer(cfg config.RelayConfig, hub *Hub, logger *zap.Logger) *Server {
	s := &Server{
		hub:      hub,
		cfg:      cfg,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
	}
	s.router.HandleFunc("/games", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/games/{code}/slots/{slot}", s.handleClaim).Methods(http.MethodPost)
	s.router.HandleFunc("/games/{code}/log", s.handleLog).Methods(http.MethodGet)
	s.router.HandleFunc("/games/{code}/ws", s.handleSocket).Methods(http.MethodGet)
	s.http = &http.Server{
		Addr:        cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("relay listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every game and shuts the listener down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Shutdown(ctx)
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("relay shutdown", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrBadSlot), errors.Is(err, ErrMalformed), errors.Is(err, ErrWrongSlot):
		status = http.StatusBadRequest
	case errors.Is(err, ErrSlotTaken):
		status = http.StatusConflict
	case errors.Is(err, ErrBadToken):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	code, err := s.hub.Create(r.Context())
	if err != nil {
		s.logger.Error("creating game", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": code})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token, err := s.hub.Claim(vars["code"], vars["slot"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"slot": vars["slot"], "token": token})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	log, err := s.hub.Backlog(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	slot := r.URL.Query().Get("slot")
	ob, backlog, err := s.hub.subscribe(code, slot, r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.unsubscribe(code, ob)
		s.logger.Warn("websocket upgrade", zap.String("game", code), zap.Error(err))
		return
	}
	go s.writePump(conn, ob, backlog)
	s.readPump(r.Context(), conn, code, ob)
}

// readPump submits every inbound frame until the socket fails. Rejections go
// back to the sender only.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, code string, ob *outbox) {
	defer s.hub.unsubscribe(code, ob)
	conn.SetReadLimit(s.cfg.MaxMessageBytes)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", zap.String("game", code), zap.String("slot", ob.slot), zap.Error(err))
			}
			return
		}
		if _, err := s.hub.Submit(ctx, code, ob.slot, data); err != nil {
			if errors.Is(err, ErrGameNotFound) {
				return
			}
			if perr := ob.Push(encode(Message{Kind: KindError, Error: err.Error()})); perr != nil {
				return
			}
		}
	}
}

// writePump sends the backlog and then every queued frame. It owns all writes
// to conn and closes it when the outbox closes.
func (s *Server) writePump(conn *websocket.Conn, ob *outbox, backlog []command.Envelope) {
	defer conn.Close()
	for i := range backlog {
		if err := s.write(conn, encode(Message{Kind: KindEnvelope, Envelope: &backlog[i]})); err != nil {
			return
		}
	}
	for frame := range ob.Frames() {
		if err := s.write(conn, frame); err != nil {
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *Server) write(conn *websocket.Conn, frame []byte) error {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
