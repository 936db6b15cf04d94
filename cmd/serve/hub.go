package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// message is what the server pushes to websocket clients.
type message struct {
	Type    string        `json:"type"` // state, toast, votePrompt, result, error
	State   *State        `json:"state,omitempty"`
	Message string        `json:"message,omitempty"`
	Song    *catalog.Song `json:"song,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type client struct {
	send chan []byte
}

// hub fans session events out to connected clients. Slow clients miss
// messages rather than stall playback.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*client]struct{}{}}
}

func (h *hub) add() *client {
	c := &client{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) == 0
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Debug("dropping message for slow websocket client")
		}
	}
}

func (h *hub) sendTo(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) onEvent(e jukebox.Event) {
	if s.hub.empty() {
		return
	}
	var msg message
	switch e.Kind {
	case jukebox.EventSnapshot:
		st := s.state()
		msg = message{Type: "state", State: &st}
	case jukebox.EventToast:
		msg = message{Type: "toast", Message: e.Message}
	case jukebox.EventVotePrompt:
		msg = message{Type: "votePrompt", Song: e.Song}
	default:
		return
	}
	if data, err := json.Marshal(msg); err == nil {
		s.hub.broadcast(data)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := s.hub.add()
	defer s.hub.remove(c)

	st := s.state()
	if data, err := json.Marshal(message{Type: "state", State: &st}); err == nil {
		s.hub.sendTo(c, data)
	}

	var wg sync.WaitGroup

	// hub -> websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		for data := range c.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.Close()
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// websocket -> commands
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd Command
		var reply message
		if err := json.Unmarshal(data, &cmd); err != nil {
			reply = message{Type: "error", Error: "invalid command: " + err.Error()}
		} else if result, err := s.exec(cmd); err != nil {
			reply = message{Type: "error", Error: err.Error()}
		} else {
			st := s.state()
			reply = message{Type: "result", Result: result, State: &st}
		}
		if out, err := json.Marshal(reply); err == nil {
			s.hub.sendTo(c, out)
		}
	}

	s.hub.remove(c)
	wg.Wait()
}
