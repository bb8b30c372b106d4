package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"ghcodec-svr/internal/pipeline"
)

var ErrNotConnected = errors.New("link: not connected")

// Client mantiene una conexión TCP hacia socket-tcp-proxy y le envía NDJSON.
type Client struct {
	addr   string
	logger *slog.Logger

	dialRetry time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func New(addr string, lg *slog.Logger) *Client {
	return &Client{
		addr:      addr,
		logger:    lg.With("component", "link"),
		dialRetry: 5 * time.Second,
	}
}

func (c *Client) Name() string { return "link" }

// Run conecta y reconecta hasta que ctx termine.
func (c *Client) Run(ctx context.Context) {
	var d net.Dialer
	for ctx.Err() == nil {
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			c.logger.Error("link: dial failed", "addr", c.addr, "err", err)
			sleep(ctx, c.dialRetry)
			continue
		}

		c.setConn(conn)
		c.logger.Info("link: connected", "remote", conn.RemoteAddr().String())

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		// leer en este hilo hasta que se caiga
		c.readLoop(conn)
		stop()

		c.clearConn(conn)
		if ctx.Err() == nil {
			c.logger.Warn("link: connection closed, reconnecting...")
			sleep(ctx, c.dialRetry/2)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) clearConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Connected informa si hay conexión activa con el proxy.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Por ahora sólo logueamos lo que llega del proxy.
func (c *Client) readLoop(conn net.Conn) {
	r := bufio.NewScanner(conn)
	for r.Scan() {
		c.logger.Debug("link: incoming line", "line", r.Text())
	}
	if err := r.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Warn("link: read error", "err", err)
	}
}

func (c *Client) sendNDJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	return nil
}

type deviceConnectPayload struct {
	DeviceConnect bool   `json:"device_connect"`
	IMEI          string `json:"imei"`
	Codec         string `json:"codec,omitempty"`
	RemoteIP      string `json:"remote_ip,omitempty"`
	RemotePort    int    `json:"remote_port,omitempty"`
}

// SendDeviceConnect se llama tras el handshake TCP con el GPS.
func (c *Client) SendDeviceConnect(info DeviceInfo) {
	pl := deviceConnectPayload{
		DeviceConnect: true,
		IMEI:          info.IMEI,
		Codec:         info.Codec,
		RemoteIP:      info.RemoteIP,
		RemotePort:    info.RemotePort,
	}
	if err := c.sendNDJSON(pl); err != nil {
		c.logger.Warn("link: send device_connect failed", "imei", info.IMEI, "err", err)
	}
}

// Publish envía el tracking como una línea NDJSON.
func (c *Client) Publish(_ context.Context, tr *pipeline.TrackingObject) error {
	if tr == nil {
		return nil
	}
	return c.sendNDJSON(tr)
}
