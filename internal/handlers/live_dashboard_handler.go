package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"io.winapps.healthjournal/internal/dashboard"
	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveMessage is one frame sent to a live dashboard client.
type liveMessage struct {
	Type     string                  `json:"type"`
	Live     bool                    `json:"live"`
	Changed  []models.Category       `json:"changed,omitempty"`
	Versions map[models.Category]int `json:"versions,omitempty"`
	// Retired lists the chart versions this frame supersedes so the client
	// can tear them down.
	Retired   map[models.Category]int `json:"retired,omitempty"`
	Dashboard *dashboard.Dashboard    `json:"dashboard,omitempty"`
}

// liveSession tracks which categories changed since the last push. Bursts of
// notifications collapse into one recomputation.
type liveSession struct {
	mu      sync.Mutex
	pending map[models.Category]bool
	wake    chan struct{}
}

func newLiveSession() *liveSession {
	return &liveSession{pending: make(map[models.Category]bool), wake: make(chan struct{}, 1)}
}

func (s *liveSession) mark(c models.Category) {
	s.mu.Lock()
	s.pending[c] = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *liveSession) drain() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []models.Category
	for _, c := range models.Categories {
		if s.pending[c] {
			changed = append(changed, c)
		}
	}
	s.pending = make(map[models.Category]bool)
	return changed
}

// LiveDashboard upgrades to a websocket, sends the dashboard and pushes a
// fresh one whenever an entry of the user changes. Each connection owns its
// chart registry, so every category has at most one live chart.
func (h *DashboardHandler) LiveDashboard(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	cal, err := calendarFor(c, h.location, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logError(c, err, "websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newLiveSession()
	live := h.subscribeAll(ctx, c, uid, session)

	charts := dashboard.NewChartRegistry()
	defer charts.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.pushLoop(ctx, conn, uid, cal, session, charts, live)
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
}

// subscribeAll subscribes to every category and reports whether live updates
// are available. Subscriptions end when ctx is cancelled.
func (h *DashboardHandler) subscribeAll(ctx context.Context, c *gin.Context, uid string, session *liveSession) bool {
	sub, ok := h.store.(store.Subscriber)
	if !ok {
		return false
	}
	for _, cat := range models.Categories {
		stop, err := sub.Subscribe(ctx, uid, cat, func() { session.mark(cat) })
		if err != nil {
			if !errors.Is(err, store.ErrSubscribeUnsupported) {
				h.logError(c, err, "failed to subscribe to entry changes", "category", cat)
			}
			return false
		}
		go func() {
			<-ctx.Done()
			stop()
		}()
	}
	return true
}

func (h *DashboardHandler) pushLoop(ctx context.Context, conn *websocket.Conn, uid string, cal dates.Calendar, session *liveSession, charts *dashboard.ChartRegistry, live bool) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var retired map[models.Category]int
	send := func(msgType string, changed []models.Category) error {
		d := h.service.Build(ctx, uid, cal)
		retired = make(map[models.Category]int)
		versions := make(map[models.Category]int, len(changed))
		for _, cat := range changed {
			var ch *dashboard.Chart
			ch = charts.Replace(cat, d.Series[cat], func() { retired[cat] = ch.Version })
			versions[cat] = ch.Version
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(liveMessage{Type: msgType, Live: live, Changed: changed, Versions: versions, Retired: retired, Dashboard: &d})
	}

	if err := send("dashboard", models.Categories); err != nil {
		conn.Close()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-session.wake:
			changed := session.drain()
			if len(changed) == 0 {
				continue
			}
			if err := send("update", changed); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
