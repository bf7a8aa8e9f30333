package fiber

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aydenstechdungeon/formfield/field"
	"github.com/aydenstechdungeon/formfield/internal/telemetry"
	"github.com/aydenstechdungeon/formfield/store"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to keep an idle connection alive.
	pongWait = 60 * time.Second
	// Send pings to peer with this period.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound message size.
	maxMessageSize = 64 * 1024
)

// WSMessage is an inbound event message.
// Origin identifies the sending tab and Seq numbers its requests per field;
// both are echoed on the reply.
type WSMessage struct {
	Type   string `json:"type"`
	Form   string `json:"form"`
	Field  string `json:"field"`
	Event  string `json:"event"`
	Value  string `json:"value"`
	Origin string `json:"origin,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
}

// WSRender carries a re-rendered field to the client.
type WSRender struct {
	Type   string `json:"type"`
	Form   string `json:"form"`
	Field  string `json:"field"`
	HTML   string `json:"html"`
	Origin string `json:"origin,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
}

// WSError reports a rejected message.
type WSError struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Form   string `json:"form,omitempty"`
	Field  string `json:"field,omitempty"`
	Origin string `json:"origin,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
}

// WSClient is one websocket connection. A session may hold several.
type WSClient struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
	closed    bool
}

// NewWSClient creates a new WebSocket client.
func NewWSClient(sessionID string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 64),
	}
}

// SendJSON queues v for the write pump. Messages are dropped when the
// buffer is full or the client is closed.
func (c *WSClient) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.Send <- data:
	default:
	}
	return nil
}

// SendError sends an error message to the client.
func (c *WSClient) SendError(message string) {
	_ = c.SendJSON(WSError{Type: "error", Error: message})
}

// Close stops the write pump. It is safe to call more than once.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WritePump pumps queued messages and pings to the connection.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads messages until the connection fails and hands each one
// to onMessage.
func (c *WSClient) ReadPump(onMessage func(*WSClient, WSMessage)) {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendError("Invalid message format")
			continue
		}
		onMessage(c, msg)
	}
}

// RenderChannel is the pub/sub channel renders travel on between processes.
const RenderChannel = "renders"

// WSHub tracks live connections by session so a render reaches every tab
// of the session that produced it.
type WSHub struct {
	clients map[string]*WSClient
	pubsub  store.PubSub
	stopped bool
	mu      sync.RWMutex
}

// renderEnvelope addresses a render to a session on the pub/sub channel.
type renderEnvelope struct {
	Session string   `json:"session"`
	Render  WSRender `json:"render"`
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]*WSClient)}
}

// Run blocks until ctx is done, then closes every client and refuses new
// ones.
func (h *WSHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// Register adds client. It reports false once the hub has stopped.
func (h *WSHub) Register(client *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[client.ID] = client
	return true
}

// Unregister removes and closes client.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	client.Close()
}

// SendToSession queues v for every client of sessionID.
func (h *WSHub) SendToSession(sessionID string, v interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.SessionID == sessionID {
			_ = client.SendJSON(v)
		}
	}
}

// Attach relays renders through ps until ctx is done, so tabs connected to
// other processes sharing ps receive them as well.
func (h *WSHub) Attach(ctx context.Context, ps store.PubSub) error {
	err := ps.Subscribe(ctx, RenderChannel, func(message []byte) {
		var env renderEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Session == "" {
			return
		}
		h.SendToSession(env.Session, env.Render)
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.pubsub = ps
	h.mu.Unlock()
	return nil
}

// Broadcast delivers render to every client of sessionID, through the
// attached pub/sub when there is one. Publish failures fall back to local
// delivery and are returned.
func (h *WSHub) Broadcast(ctx context.Context, sessionID string, render WSRender) error {
	h.mu.RLock()
	ps := h.pubsub
	h.mu.RUnlock()
	if ps == nil {
		h.SendToSession(sessionID, render)
		return nil
	}
	data, err := json.Marshal(renderEnvelope{Session: sessionID, Render: render})
	if err == nil {
		err = ps.Publish(ctx, RenderChannel, data)
	}
	if err != nil {
		h.SendToSession(sessionID, render)
	}
	return err
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WebSocketConfig holds WebSocket configuration.
type WebSocketConfig struct {
	// Hub is stopped by cancelling the context passed to WSHub.Run.
	Hub *WSHub
	// Context is the base context of dispatches and renders.
	Context    context.Context
	Dispatcher Dispatcher
	Config     Config
	Logger     *telemetry.Logger
	// AllowedOrigins is the complete list of origins allowed to connect,
	// the app's own origin included. Empty means same origin only, which
	// WebSocketUpgradeMiddleware enforces.
	AllowedOrigins []string
}

// WebSocketUpgradeMiddleware rejects plain HTTP requests on the websocket
// path, and upgrades from an Origin that is neither the request's own host
// nor listed in allowed.
func WebSocketUpgradeMiddleware(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" || sameOrigin(origin, string(c.Request().Host())) {
			return c.Next()
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return c.Next()
			}
		}
		return fiber.ErrForbidden
	}
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// WebSocketHandler creates the websocket event transport. The session comes
// from SessionMiddleware on the upgrade request.
func WebSocketHandler(config WebSocketConfig) fiber.Handler {
	logger := config.Logger
	if logger == nil {
		logger = telemetry.Nop()
	}
	logger = logger.NewComponentLogger("websocket")

	return websocket.New(func(c *websocket.Conn) {
		sessionID, _ := c.Locals(config.Config.SessionKey).(string)
		if sessionID == "" {
			_ = c.WriteJSON(WSError{Type: "error", Error: "missing session"})
			_ = c.Close()
			return
		}

		client := NewWSClient(sessionID, c)
		if !config.Hub.Register(client) {
			_ = c.WriteJSON(WSError{Type: "error", Error: "server shutting down"})
			_ = c.Close()
			return
		}
		logger.Debugf("client %s connected for session %s", client.ID, sessionID)

		go client.WritePump()
		client.ReadPump(func(client *WSClient, msg WSMessage) {
			handleWSMessage(config, client, msg)
		})

		config.Hub.Unregister(client)
		logger.Debugf("client %s disconnected", client.ID)
	}, websocket.Config{
		Origins:          config.AllowedOrigins,
		HandshakeTimeout: 10 * time.Second,
	})
}

func handleWSMessage(config WebSocketConfig, client *WSClient, msg WSMessage) {
	replyError := func(text string) {
		_ = client.SendJSON(WSError{
			Type:   "error",
			Error:  text,
			Form:   msg.Form,
			Field:  msg.Field,
			Origin: msg.Origin,
			Seq:    msg.Seq,
		})
	}
	if msg.Type != "event" {
		replyError("Unknown message type: " + msg.Type)
		return
	}
	typ, err := field.ParseEventType(msg.Event)
	if err != nil {
		replyError(err.Error())
		return
	}
	native := field.NativeEvent{
		Type:      typ,
		Transport: "ws",
		Raw:       map[string]string{"event": msg.Event, "value": msg.Value},
		At:        time.Now(),
	}

	ctx := config.Context
	if ctx == nil {
		ctx = context.Background()
	}
	comp, err := config.Dispatcher.Dispatch(ctx, client.SessionID, msg.Form, msg.Field, native, msg.Value)
	if err != nil {
		replyError(WrapError(err).Message)
		return
	}
	var buf bytes.Buffer
	if err := comp.Render(ctx, &buf); err != nil {
		replyError("Failed to render field")
		return
	}
	render := WSRender{
		Type:   "render",
		Form:   msg.Form,
		Field:  msg.Field,
		HTML:   buf.String(),
		Origin: msg.Origin,
		Seq:    msg.Seq,
	}
	if err := config.Hub.Broadcast(ctx, client.SessionID, render); err != nil && config.Logger != nil {
		config.Logger.WithError(err).Warn("render publish failed")
	}
}
