package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventsPath is where a snapshot server publishes its event feed.
const EventsPath = "/whiteboard/events"

const writeTimeout = 5 * time.Second

type EventType string

const (
	EventSaved       EventType = "saved"
	EventLoaded      EventType = "loaded"
	EventInvalidated EventType = "invalidated"
)

// Event is one entry on the feed.
type Event struct {
	Type        EventType `json:"type"`
	SessionID   string    `json:"sessionId"`
	At          time.Time `json:"at"`
	Annotations int       `json:"annotations,omitempty"`
	Bytes       int       `json:"bytes,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Actor       string    `json:"actor,omitempty"`
}

// Peer is one feed subscriber. An empty session receives every event.
type Peer struct {
	conn    *websocket.Conn
	session string
	mu      sync.Mutex
}

func (p *Peer) send(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(ev)
}

// PeerManager fans events out to feed subscribers.
type PeerManager struct {
	peers    map[*Peer]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewPeerManager(log zerolog.Logger) *PeerManager {
	return &PeerManager{
		peers: make(map[*Peer]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (pm *PeerManager) add(p *Peer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peers[p] = struct{}{}
	pm.log.Debug().Str("remote", p.conn.RemoteAddr().String()).Str("session", p.session).Msg("feed subscriber joined")
}

func (pm *PeerManager) remove(p *Peer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, ok := pm.peers[p]; !ok {
		return
	}
	delete(pm.peers, p)
	_ = p.conn.Close()
	pm.log.Debug().Str("remote", p.conn.RemoteAddr().String()).Msg("feed subscriber left")
}

func (pm *PeerManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// Broadcast sends ev to every subscriber of its session. Peers that cannot
// keep up are dropped.
func (pm *PeerManager) Broadcast(ev Event) {
	pm.mu.RLock()
	targets := make([]*Peer, 0, len(pm.peers))
	for p := range pm.peers {
		if p.session == "" || p.session == ev.SessionID {
			targets = append(targets, p)
		}
	}
	pm.mu.RUnlock()

	for _, p := range targets {
		if err := p.send(ev); err != nil {
			pm.log.Debug().Err(err).Msg("feed send failed")
			pm.remove(p)
		}
	}
}

// ServeHTTP upgrades a feed subscription. The read loop only watches for the
// subscriber going away.
func (pm *PeerManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := pm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pm.log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}
	p := &Peer{conn: conn, session: r.URL.Query().Get("session_id")}
	pm.add(p)
	go func() {
		defer pm.remove(p)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

// Close disconnects every subscriber.
func (pm *PeerManager) Close() {
	pm.mu.Lock()
	peers := pm.peers
	pm.peers = make(map[*Peer]struct{})
	pm.mu.Unlock()
	for p := range peers {
		p.mu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		p.mu.Unlock()
		_ = p.conn.Close()
	}
}

// FeedURL turns a snapshot server base URL into its event feed URL.
func FeedURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path += EventsPath
	if sessionID != "" {
		u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()
	}
	return u.String(), nil
}

// Watch follows the event feed until ctx ends or the server closes it.
func Watch(ctx context.Context, baseURL, sessionID string, fn func(Event)) error {
	target, err := FeedURL(baseURL, sessionID)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		fn(ev)
	}
}
