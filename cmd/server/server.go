package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kevinxiao27/otkit/ol"
	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/room"
)

type roomLog = ol.OpLog[room.Diff, *room.State]

type document struct {
	log *roomLog
	hub *hub
}

type server struct {
	ctx      context.Context
	logger   *slog.Logger
	opts     []ol.Option
	upgrader websocket.Upgrader

	mu    sync.Mutex // protects rooms
	rooms map[string]*document
}

// PushRequest is the body of POST /rooms/{room}/diffs. Seq defaults to the
// agent's next sequence number, Base to the empty room and Agent to a fresh id.
type PushRequest struct {
	Agent string      `json:"agent,omitempty"`
	Seq   int         `json:"seq,omitempty"`
	Base  *ol.LV      `json:"base,omitempty"`
	Diffs []room.Diff `json:"diffs"`
}

type RoomResponse struct {
	Head ol.LV     `json:"head"`
	Room room.View `json:"room"`
}

// WSMessage is sent to websocket clients: a snapshot once, then every entry
// committed after the client joined. Entries at or below the snapshot head
// may be repeated and are to be skipped.
type WSMessage struct {
	Type  string               `json:"type"`
	Head  ol.LV                `json:"head"`
	Room  *room.View           `json:"room,omitempty"`
	Entry *ol.Entry[room.Diff] `json:"entry,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newServer(ctx context.Context, logger *slog.Logger, opts ...ol.Option) *server {
	return &server{
		ctx:    ctx,
		logger: logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]*document),
	}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.recoverPanics)
	r.Methods(http.MethodGet).Path("/rooms/{room}").HandlerFunc(s.getRoom)
	r.Methods(http.MethodGet).Path("/rooms/{room}/diffs").HandlerFunc(s.getDiffs)
	r.Methods(http.MethodPost).Path("/rooms/{room}/diffs").HandlerFunc(s.postDiffs)
	r.Methods(http.MethodGet).Path("/rooms/{room}/ws").HandlerFunc(s.handleWebSocket)
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Info("handled", "method", r.Method, "url", r.URL, "duration", m.Duration, "status", m.Code)
	})
}

// recoverPanics turns a panic in a handler into a 500, or a 422 when a diff
// broke the algebra's preconditions.
func (s *server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if err, ok := ot.Violation(rec); ok {
				s.logger.Error("rejected diff", "url", r.URL, "err", err)
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			s.logger.Error("handler panic", "url", r.URL, "panic", rec)
			writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) document(name string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.rooms[name]; ok {
		return doc
	}
	doc := &document{
		log: ol.NewOpLog[room.Diff](room.System(), room.NewState(), s.withRoom(name)...),
		hub: newHub(),
	}
	go doc.hub.run(s.ctx)
	s.rooms[name] = doc
	return doc
}

func (s *server) withRoom(name string) []ol.Option {
	return append(append([]ol.Option{}, s.opts...), ol.WithLogger(s.logger.With("room", name)))
}

func (s *server) getRoom(w http.ResponseWriter, r *http.Request) {
	doc := s.document(mux.Vars(r)["room"])
	writeJSON(w, http.StatusOK, snapshot(doc.log))
}

func snapshot(l *roomLog) RoomResponse {
	var resp RoomResponse
	l.Read(func(head ol.LV, state *room.State) {
		resp = RoomResponse{Head: head, Room: state.View()}
	})
	return resp
}

func (s *server) getDiffs(w http.ResponseWriter, r *http.Request) {
	doc := s.document(mux.Vars(r)["room"])
	since := ol.Root
	if q := r.URL.Query().Get("since"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("since: %w", err))
			return
		}
		since = ol.LV(n)
	}
	entries, err := doc.log.Since(since)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if entries == nil {
		entries = []ol.Entry[room.Diff]{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) postDiffs(w http.ResponseWriter, r *http.Request) {
	doc := s.document(mux.Vars(r)["room"])

	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode: %w", err))
		return
	}
	if req.Agent == "" {
		req.Agent = uuid.NewString()
	}
	if req.Seq == 0 {
		req.Seq = doc.log.Version()[req.Agent] + 1
	}
	base := ol.Root
	if req.Base != nil {
		base = *req.Base
	}

	entry, err := doc.log.Push(r.Context(), ol.ID{Agent: req.Agent, Seq: req.Seq}, base, req.Diffs)
	switch {
	case errors.Is(err, ot.ErrTransformFailure), errors.Is(err, ol.ErrSeqGap):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, ol.ErrUnknownBase):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	doc.hub.publish(s.ctx, mustMarshal(WSMessage{Type: "entry", Head: entry.LV, Entry: &entry}))
	writeJSON(w, http.StatusCreated, entry)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	doc := s.document(mux.Vars(r)["room"])
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, sendBuffer)
	if !doc.hub.join(s.ctx, send) {
		return
	}
	defer doc.hub.leave(s.ctx, send)

	snap := snapshot(doc.log)
	if err := conn.WriteJSON(WSMessage{Type: "snapshot", Head: snap.Head, Room: &snap.Room}); err != nil {
		return
	}
	s.logger.Debug("client connected", "url", r.URL)

	eof := make(chan struct{})
	go func() {
		defer close(eof)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-eof:
			s.logger.Debug("client disconnected", "url", r.URL)
			return
		}
	}
}

func mustMarshal(v any) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
