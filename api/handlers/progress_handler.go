package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

const (
	progressBuffer = 256
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressMessage is one update pushed to websocket clients
type ProgressMessage struct {
	State domain.ProgressState `json:"state"`
	Line  string               `json:"line,omitempty"`
}

// ProgressHandler exposes the state of the current download
type ProgressHandler struct {
	tracker *app.ProgressTracker
	logger  *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(tracker *app.ProgressTracker, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		tracker: tracker,
		logger:  logger,
	}
}

// GetProgress handles GET /api/v1/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Snapshot())
}

// HandleWebSocket handles GET /api/v1/progress/ws. The client first gets
// the full snapshot, then one message per state change.
func (h *ProgressHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	// Listeners run on the output goroutine and must not block.
	queue := newProgressQueue(progressBuffer)
	unsubscribe := h.tracker.Subscribe(func(state domain.ProgressState, line string) {
		queue.push(ProgressMessage{State: state, Line: line})
	})
	defer unsubscribe()

	if err := h.write(conn, ProgressMessage{State: h.tracker.Snapshot()}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-queue.updates:
			if err := h.write(conn, msg); err != nil {
				return
			}
		case <-queue.parked:
			for _, msg := range queue.drain() {
				if err := h.write(conn, msg); err != nil {
					return
				}
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *ProgressHandler) write(conn *websocket.Conn, msg ProgressMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("Failed to send progress", zap.Error(err))
		return err
	}
	return nil
}

// progressQueue hands updates from the tracker to one websocket writer
// without blocking the tracker. Once the buffer is full, newer updates
// overwrite a single parked slot, so the latest state is never lost.
type progressQueue struct {
	updates chan ProgressMessage
	parked  chan struct{}

	mu     sync.Mutex
	latest *ProgressMessage
}

func newProgressQueue(size int) *progressQueue {
	return &progressQueue{
		updates: make(chan ProgressMessage, size),
		parked:  make(chan struct{}, 1),
	}
}

func (q *progressQueue) push(msg ProgressMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.latest == nil {
		select {
		case q.updates <- msg:
			return
		default:
		}
	}
	q.latest = &msg
	select {
	case q.parked <- struct{}{}:
	default:
	}
}

// drain empties the buffer and the parked slot, oldest first
func (q *progressQueue) drain() []ProgressMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	// the writer is the only reader, so len is stable under the lock
	out := make([]ProgressMessage, 0, len(q.updates)+1)
	for len(q.updates) > 0 {
		out = append(out, <-q.updates)
	}
	if q.latest != nil {
		out = append(out, *q.latest)
		q.latest = nil
	}
	return out
}
