package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/middleware"
)

const (
	TripPlanned = "trip_planned"
	TripDeleted = "trip_deleted"

	eventWriteWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the API already reflects any origin
	},
}

// TripEvent is pushed to every open feed of the trip's driver.
type TripEvent struct {
	Type          string    `json:"type"`
	TripID        uuid.UUID `json:"trip_id"`
	DriverID      uuid.UUID `json:"driver_id"`
	TotalDistance float64   `json:"total_distance,omitempty"`
	TotalDuration float64   `json:"total_duration,omitempty"`
	Days          int       `json:"days,omitempty"`
	At            time.Time `json:"at"`
}

// TripEventHub fans trip events out to each driver's websocket clients.
type TripEventHub struct {
	clients   map[uuid.UUID]map[*websocket.Conn]bool
	broadcast chan TripEvent
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewTripEventHub starts the broadcasting goroutine. Stop it with Close.
func NewTripEventHub() *TripEventHub {
	h := &TripEventHub{
		clients:   make(map[uuid.UUID]map[*websocket.Conn]bool),
		broadcast: make(chan TripEvent, 100),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *TripEventHub) run() {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *TripEventHub) deliver(ev TripEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[ev.DriverID]))
	for conn := range h.clients[ev.DriverID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"driver_id": ev.DriverID,
				"conn_ptr":  fmt.Sprintf("%p", conn),
			}).Warn("trip event: dropping client after failed write")
			h.Unregister(ev.DriverID, conn)
			conn.Close()
		}
	}
}

func (h *TripEventHub) Register(driverID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[driverID]; !ok {
		h.clients[driverID] = make(map[*websocket.Conn]bool)
	}
	h.clients[driverID][conn] = true
	logrus.WithFields(logrus.Fields{
		"driver_id": driverID,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("trip event client registered")
}

func (h *TripEventHub) Unregister(driverID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[driverID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, driverID)
		}
	}
}

// Clients counts the open feeds of a driver.
func (h *TripEventHub) Clients(driverID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[driverID])
}

// Publish queues ev without blocking. Events for drivers with no feed are dropped.
func (h *TripEventHub) Publish(ev TripEvent) {
	if h == nil || ev.DriverID == uuid.Nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- ev:
	default:
		logrus.WithField("trip_id", ev.TripID).Warn("trip event channel full, dropping event")
	}
}

func (h *TripEventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, clients := range h.clients {
			for conn := range clients {
				conn.Close()
			}
		}
		h.clients = make(map[uuid.UUID]map[*websocket.Conn]bool)
	})
}

// wsDriver authenticates a websocket request. Browsers cannot set headers on the upgrade,
// so the token may also come as ?token=.
func wsDriver(c *gin.Context) (uuid.UUID, error) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		return uuid.Nil, errors.New("missing authentication token")
	}
	claims, err := middleware.ValidateToken(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	id, err := uuid.Parse(claims.DriverID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token claims: %w", err)
	}
	return id, nil
}

// HandleTripEvents upgrades to a websocket that streams the caller's trip events.
// Messages from the client are ignored.
func (h *TripEventHub) HandleTripEvents(c *gin.Context) {
	driverID, err := wsDriver(c)
	if err != nil {
		logrus.WithError(err).Warn("trip event connection refused")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	h.Register(driverID, conn)
	defer h.Unregister(driverID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("driver_id", driverID).Debug("trip event read ended")
			}
			return
		}
	}
}
