// ABOUTME: WebSocket hub broadcasting node-tree documents to diagram clients
// ABOUTME: Also serves Prometheus metrics and a health check on the same listener
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mindscribe/mindscribe-go/internal/metrics"
	"github.com/mindscribe/mindscribe-go/internal/protocol"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	// sendBuffer is the per-client queue of pending messages
	sendBuffer = 16

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// HubConfig configures a Hub
type HubConfig struct {
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	// Metrics tracks connected clients when set
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// Hub pushes every shown tree to all connected websocket clients. Clients
// that connect later receive the last document immediately.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.RWMutex
	clients map[string]*client
	last    []byte
	closed  bool

	wg sync.WaitGroup
}

type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan []byte
}

// NewHub creates a hub serving /tree, /metrics and /healthz
func NewHub(config HubConfig) *Hub {
	h := &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			// Diagram pages are served from anywhere on the local machine
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[string]*client),
	}

	h.mux.HandleFunc(protocol.TreePath, h.handleWebSocket)
	h.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "ok")
	})
	if config.Gatherer != nil {
		h.mux.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Clients returns the number of connected diagram clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Show broadcasts doc to every client and remembers it for late joiners
func (h *Hub) Show(doc mindtree.Document) error {
	data, err := encode(protocol.TypeTreeShow, doc)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	h.broadcastLocked(data)
	h.config.Logger.Debug().Int("clients", len(h.clients)).Msg("tree broadcast")
	return nil
}

// Resize tells clients to re-fit the current diagram
func (h *Hub) Resize() {
	data, err := encode(protocol.TypeTreeResize, struct{}{})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(data)
}

// broadcastLocked queues data for every client without blocking. Send
// channels are only closed under the write lock, so holding either lock
// keeps them open.
func (h *Hub) broadcastLocked(data []byte) {
	for _, c := range h.clients {
		select {
		case c.sendChan <- data:
		default:
			h.config.Logger.Warn().Str("client", c.id).Msg("client send buffer full, dropping message")
		}
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Serve runs the hub on ln until ctx is cancelled
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	h.config.Logger.Info().Str("addr", ln.Addr().String()).Msg("renderer hub listening")

	var serverErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		serverErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		h.config.Logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	h.Close()

	if serverErr != nil {
		return fmt.Errorf("renderer hub failed: %w", serverErr)
	}
	h.config.Logger.Info().Msg("renderer hub stopped")
	return nil
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	if h.last != nil {
		c.sendChan <- h.last
	}
	h.wg.Add(1)
	count := len(h.clients)
	h.mu.Unlock()

	h.updateGauge(count)
	log := h.config.Logger.With().Str("client", c.id).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("diagram client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		close(c.sendChan)
		count := len(h.clients)
		h.mu.Unlock()
		conn.Close()
		h.updateGauge(count)
		log.Info().Msg("diagram client disconnected")
		h.wg.Done()
	}()

	go h.clientWriter(c, log)

	// Clients only send control frames; reading drives pong and close handling
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket error")
			}
			return
		}
	}
}

// clientWriter sends queued messages and keepalive pings to one client
func (h *Hub) clientWriter(c *client, log zerolog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("error writing message")
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) updateGauge(count int) {
	if h.config.Metrics != nil {
		h.config.Metrics.RendererClients.Set(float64(count))
	}
}
