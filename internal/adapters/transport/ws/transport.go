// Package ws implements the duplex transport over WebSocket using
// gorilla/websocket. Inbound frames carry remote events; outbound
// frames carry per-event acknowledgements.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
)

// Compile-time check that Transport implements DuplexTransportPort.
var _ ports.DuplexTransportPort = (*Transport)(nil)

const (
	writeTimeout = 10 * time.Second
	// readLimit bounds a single inbound frame.
	readLimit = 1 << 20
)

// Config holds duplex transport configuration.
type Config struct {
	SocketURL        string
	HandshakeTimeout time.Duration
}

// Transport dials WebSocket connections to the coordination backend.
type Transport struct {
	config Config
	logger *logging.Logger
}

// NewTransport creates a WebSocket duplex transport.
func NewTransport(config Config, logger *logging.Logger) *Transport {
	return &Transport{config: config, logger: logger}
}

// Connect performs the WebSocket handshake, presenting the session
// token as a bearer credential. A 401/403 handshake response is
// reported as an AUTH error so the engine enters recovery instead of
// plain reconnection.
func (t *Transport) Connect(ctx context.Context, token string) (ports.DuplexConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.config.HandshakeTimeout,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	wsConn, resp, err := dialer.DialContext(ctx, t.config.SocketURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, domainErrors.NewError(domainErrors.CodeAuth,
				"backend rejected session token during handshake", err)
		}
		return nil, domainErrors.NewError(domainErrors.CodeTransport,
			fmt.Sprintf("failed to connect to %s", t.config.SocketURL), err)
	}

	wsConn.SetReadLimit(readLimit)

	c := &conn{
		ws:     wsConn,
		events: make(chan dsync.RemoteEvent),
		done:   make(chan struct{}),
		logger: t.logger,
	}
	go c.readLoop()
	return c, nil
}

// ackFrame is the outbound acknowledgement wire format.
type ackFrame struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

type conn struct {
	ws     *websocket.Conn
	events chan dsync.RemoteEvent
	done   chan struct{}
	logger *logging.Logger

	// writeMu serializes outbound frames; gorilla allows only one
	// concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

var _ ports.DuplexConn = (*conn)(nil)

// readLoop decodes inbound frames until the connection fails, then
// closes the event channel so the engine sees the drop.
func (c *conn) readLoop() {
	defer close(c.events)
	defer c.markDone(nil)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !isCleanClose(err) {
				c.markDone(domainErrors.NewError(domainErrors.CodeTransport, "connection lost", err))
			}
			return
		}

		var evt dsync.RemoteEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		if evt.EventID == "" {
			c.logger.Warn("discarding frame without event id", "eventType", evt.EventType)
			continue
		}

		select {
		case c.events <- evt:
		case <-c.done:
			return
		}
	}
}

func (c *conn) Events() <-chan dsync.RemoteEvent {
	return c.events
}

func (c *conn) Ack(ctx context.Context, eventID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.ws.SetWriteDeadline(deadline)

	frame := ackFrame{Type: "ack", EventID: eventID}
	if err := c.ws.WriteJSON(frame); err != nil {
		return domainErrors.NewError(domainErrors.CodeTransport, "failed to send ack", err)
	}
	return nil
}

func (c *conn) Ping(ctx context.Context) error {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return domainErrors.NewError(domainErrors.CodeTransport, "heartbeat failed", err)
	}
	return nil
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}

func (c *conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// markDone records the terminal error and closes done, exactly once.
func (c *conn) markDone(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// isCleanClose reports whether the read loop ended because of a
// deliberate shutdown rather than a genuine drop.
func isCleanClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	// A local Close races the blocked read and surfaces as a
	// use-of-closed-connection error.
	return errors.Is(err, net.ErrClosed)
}
