package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Baaaki/wastetrack/internal/broker"
	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message to the peer
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize = 4 * 1024            // clients only send control frames
	sendBufferSize = 32
)

// FeedMessage is what dashboards receive: "report_event" or "session_expired".
type FeedMessage struct {
	Type  string        `json:"type"`
	Event *broker.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

type feedClient struct {
	conn        *websocket.Conn
	send        chan []byte
	employeeID  string
	expiresAt   time.Time
	connectedAt time.Time
}

// ReportFeed pushes report events from the broker to every connected dashboard.
type ReportFeed struct {
	events   broker.EventBroker
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

// NewReportFeed accepts upgrades from allowedOrigins; "*" allows any origin.
func NewReportFeed(events broker.EventBroker, allowedOrigins []string) *ReportFeed {
	f := &ReportFeed{
		events:  events,
		clients: make(map[*feedClient]struct{}),
	}
	f.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return f
}

// Run forwards broker events to clients until ctx is done.
func (f *ReportFeed) Run(ctx context.Context) error {
	events, err := f.events.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger.Log.Info("Report feed listening for events")

	for event := range events {
		data, err := json.Marshal(FeedMessage{Type: "report_event", Event: &event})
		if err != nil {
			logger.Log.Error("Failed to encode report event", zap.Error(err))
			continue
		}
		f.broadcast(data)
	}

	logger.Log.Info("Report feed stopped")
	return nil
}

// ClientCount returns the number of connected dashboards.
func (f *ReportFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *ReportFeed) broadcast(data []byte) {
	var slow []*feedClient

	f.mu.RLock()
	for client := range f.clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	f.mu.RUnlock()

	// A client that cannot keep up is dropped rather than stalling everyone else.
	for _, client := range slow {
		logger.Log.Warn("Dropping slow feed client",
			zap.String("employee_id", client.employeeID),
		)
		f.removeClient(client)
	}
}

// HandleWebSocket handles GET /api/ws/reports. AuthMiddleware must run first.
func (f *ReportFeed) HandleWebSocket(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed",
			zap.String("employee_id", claims.EmployeeID),
			zap.Error(err),
		)
		return
	}

	client := &feedClient{
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		employeeID:  claims.EmployeeID,
		connectedAt: time.Now(),
	}
	if claims.ExpiresAt != nil {
		client.expiresAt = claims.ExpiresAt.Time
	}

	f.mu.Lock()
	f.clients[client] = struct{}{}
	total := len(f.clients)
	f.mu.Unlock()

	logger.Log.Info("Feed client connected",
		zap.String("employee_id", client.employeeID),
		zap.Int("clients", total),
	)

	go f.writePump(client)
	f.readPump(client)
}

// readPump only services control frames; it returns when the peer goes away.
func (f *ReportFeed) readPump(client *feedClient) {
	defer f.removeClient(client)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Feed client read error",
					zap.String("employee_id", client.employeeID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump owns all writes to the connection. The session ends when the token expires.
func (f *ReportFeed) writePump(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	var expired <-chan time.Time
	if !client.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(client.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-expired:
			f.closeExpired(client)
			return
		}
	}
}

func (f *ReportFeed) closeExpired(client *feedClient) {
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteJSON(FeedMessage{Type: "session_expired", Error: "token expired"}); err != nil {
		logger.Log.Debug("Failed to send session_expired message", zap.Error(err))
	}

	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "token expired"),
	)

	logger.Log.Info("Feed session expired",
		zap.String("employee_id", client.employeeID),
	)
}

func (f *ReportFeed) removeClient(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[client]; !exists {
		return
	}
	delete(f.clients, client)
	close(client.send)

	logger.Log.Info("Feed client disconnected",
		zap.String("employee_id", client.employeeID),
		zap.Duration("session_duration", time.Since(client.connectedAt).Round(time.Second)),
		zap.Int("clients", len(f.clients)),
	)
}
