// Package server is an in-memory snapshot endpoint for development and
// integration tests. It stores every POSTed snapshot per session, serves
// them newest first, caches reads until a write or an explicit DELETE, and
// publishes what happens on a websocket feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	boardnet "ClassBoard/internal/net"
	"ClassBoard/internal/persist"

	"github.com/rs/zerolog"
)

const (
	maxBody = 32 << 20
	// DefaultHistory bounds stored snapshots per session.
	DefaultHistory = 20
)

type saveBody struct {
	SessionID string            `json:"sessionId"`
	ImageData string            `json:"imageData"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	TextBoxes []json.RawMessage `json:"textBoxes"`
	Metadata  persist.Metadata  `json:"metadata"`
}

type Options struct {
	History int
	Now     func() time.Time
	Log     zerolog.Logger
}

type Server struct {
	opts  Options
	log   zerolog.Logger
	feed  *boardnet.PeerManager
	mux   *http.ServeMux
	mu    sync.Mutex
	store map[string][]persist.Record
	cache map[string][]byte
}

func New(opts Options) *Server {
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Log.With().Str("component", "server").Logger()
	s := &Server{
		opts:  opts,
		log:   log,
		feed:  boardnet.NewPeerManager(log),
		store: make(map[string][]persist.Record),
		cache: make(map[string][]byte),
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /whiteboard", s.load)
	s.mux.HandleFunc("POST /whiteboard", s.save)
	s.mux.HandleFunc("DELETE /whiteboard", s.invalidate)
	s.mux.Handle("GET "+boardnet.EventsPath, s.feed)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Feed() *boardnet.PeerManager { return s.feed }

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.mu.Lock()
	body, cached := s.cache[id]
	if !cached {
		records := s.store[id]
		if records == nil {
			records = []persist.Record{}
		}
		var err error
		body, err = json.Marshal(records)
		if err != nil {
			s.mu.Unlock()
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.cache[id] = body
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	_, _ = w.Write(body)
	s.feed.Broadcast(boardnet.Event{Type: boardnet.EventLoaded, SessionID: id, At: s.opts.Now(), Bytes: len(body), Cached: cached})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) > maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, "snapshot too large")
		return
	}
	var body saveBody
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed snapshot: "+err.Error())
		return
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	now := s.opts.Now()
	rec := persist.Record{
		ImageData: body.ImageData,
		TextBoxes: body.TextBoxes,
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
	}
	s.mu.Lock()
	records := append([]persist.Record{rec}, s.store[body.SessionID]...)
	if len(records) > s.opts.History {
		records = records[:s.opts.History]
	}
	s.store[body.SessionID] = records
	delete(s.cache, body.SessionID)
	s.mu.Unlock()

	s.log.Info().
		Str("session", body.SessionID).
		Str("actor", body.Metadata.ActorName).
		Int("annotations", len(body.TextBoxes)).
		Int("bytes", len(data)).
		Msg("snapshot stored")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "saved", "created_at": rec.CreatedAt})
	s.feed.Broadcast(boardnet.Event{
		Type:        boardnet.EventSaved,
		SessionID:   body.SessionID,
		At:          now,
		Annotations: len(body.TextBoxes),
		Bytes:       len(data),
		Actor:       body.Metadata.ActorName,
	})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	s.mu.Lock()
	_, had := s.cache[id]
	delete(s.cache, id)
	s.mu.Unlock()

	s.log.Info().Str("session", id).Bool("cached", had).Msg("cache invalidated")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "invalidated", "cached": had})
	s.feed.Broadcast(boardnet.Event{Type: boardnet.EventInvalidated, SessionID: id, At: s.opts.Now(), Cached: had})
}

// Run serves on port until ctx ends, announcing itself over mDNS when
// advertise is set.
func (s *Server) Run(ctx context.Context, port int, advertise bool) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", port, err)
	}
	port = ln.Addr().(*net.TCPAddr).Port

	if advertise {
		md, err := boardnet.Advertise(port)
		if err != nil {
			s.log.Warn().Err(err).Msg("mDNS advertisement unavailable")
		} else {
			defer md.Shutdown()
		}
	}

	hs := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.log.Info().Str("url", fmt.Sprintf("http://%s:%d", boardnet.GetOutgoingIP(), port)).Msg("snapshot server listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.feed.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
