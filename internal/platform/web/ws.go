package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/mars-lander/internal/hub"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	eventBuffer = 256
	maxInbound  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the envelope of every websocket frame. Type is the event kind
// ("generation", "commit", "finished") or "error".
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ClientMessage is sent by websocket clients. The only command is "stop".
type ClientMessage struct {
	Type string `json:"type"`
}

// handleWatchJob streams an existing job.
func (s *Server) handleWatchJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	s.stream(w, r, j, false)
}

// handleSolve starts a job on a level and streams it. The job is stopped
// when the client goes away.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := StartJobRequest{
		Level:  chi.URLParam(r, "level"),
		Preset: q.Get("preset"),
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Seed = seed
	}

	j, status, err := s.startJob(req)
	if err != nil {
		s.writeError(w, status, err)
		return
	}
	s.stream(w, r, j, true)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, j *hub.Job, owned bool) {
	if owned {
		defer j.Stop()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:    conn,
		session: hub.NewChannelSession(hub.SessionID(uuid.NewString()), eventBuffer),
		job:     j,
		logger:  s.logger.With("job", string(j.ID())),
	}
	defer c.session.Close()

	if err := s.opts.Hub.Watch(j.ID(), c.session); err != nil {
		c.send(Message{Type: "error", Payload: err.Error()})
		conn.Close()
		return
	}

	c.logger.Debug("watcher connected", "session", string(c.session.ID()))
	go c.readPump()
	c.writePump()
	c.logger.Debug("watcher disconnected", "session", string(c.session.ID()))
}

// client bridges one websocket connection and its hub session.
type client struct {
	conn    *websocket.Conn
	session *hub.ChannelSession
	job     *hub.Job
	logger  *log.Logger
}

// readPump handles client commands until the connection fails.
func (c *client) readPump() {
	defer c.session.Close()

	c.conn.SetReadLimit(maxInbound)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "stop" {
			c.job.Stop()
		}
	}
}

// writePump forwards hub events until the job finishes or the session ends.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt := <-c.session.Events():
			if err := c.send(Message{Type: evt.Kind(), Payload: evt}); err != nil {
				c.logger.Warn("websocket write failed", "error", err)
				return
			}
			if evt.Kind() == "finished" {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "search finished"),
					time.Now().Add(writeWait))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.session.Done():
			return
		}
	}
}

func (c *client) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
