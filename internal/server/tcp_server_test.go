package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghcodec-svr/internal/codec"
)

const testIMEI = "356307042441013"

type fakeHandler struct {
	mu       sync.Mutex
	payloads [][]byte
	n        int
	err      error
}

func (h *fakeHandler) ProcessIncoming(_ context.Context, imei string, payload []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, append([]byte(nil), payload...))
	return h.n, h.err
}

type memArchive struct {
	mu    sync.Mutex
	lines int
}

func (a *memArchive) Write(string, []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handshakeBytes(imei string) []byte {
	return append([]byte{0x00, byte(len(imei))}, imei...)
}

func readN(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	b := make([]byte, n)
	_, err := io.ReadFull(c, b)
	require.NoError(t, err)
	return b
}

func TestHandleConnection_HandshakeAndAck(t *testing.T) {
	h := &fakeHandler{n: 2}
	arch := &memArchive{}
	var connected string
	srv := New(h, arch, func(imei string, _ net.Addr) { connected = imei }, discardLogger())

	client, conn := net.Pipe()
	done := make(chan struct{})
	go func() {
		srv.HandleConnection(context.Background(), conn)
		close(done)
	}()

	_, err := client.Write(handshakeBytes(testIMEI))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, readN(t, client, 1))

	// paquete partido en dos escrituras
	pkt := codec.BuildPacket([]byte{7, 0, 0})
	_, err = client.Write(pkt[:5])
	require.NoError(t, err)
	_, err = client.Write(pkt[5:])
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 2}, readN(t, client, 4))

	assert.Equal(t, testIMEI, connected)
	assert.Equal(t, 1, srv.ActiveCount())

	// CRC roto: ack 0 y el handler no se llama
	bad := codec.BuildPacket([]byte{7, 0, 0})
	bad[len(bad)-1] ^= 0xFF
	_, err = client.Write(bad)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, readN(t, client, 4))

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return")
	}

	h.mu.Lock()
	assert.Equal(t, [][]byte{{7, 0, 0}}, h.payloads)
	h.mu.Unlock()
	assert.Equal(t, 2, arch.lines)
	assert.Equal(t, 0, srv.ActiveCount())
}

func TestHandleConnection_HandlerErrorAcksZero(t *testing.T) {
	h := &fakeHandler{n: 5, err: errors.New("decode failed")}
	srv := New(h, nil, nil, discardLogger())

	client, conn := net.Pipe()
	defer client.Close()
	go srv.HandleConnection(context.Background(), conn)

	_, err := client.Write(handshakeBytes(testIMEI))
	require.NoError(t, err)
	readN(t, client, 1)

	_, err = client.Write(codec.BuildPacket([]byte{7, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, readN(t, client, 4))
}

func TestHandleConnection_TwoPacketsInOneWrite(t *testing.T) {
	h := &fakeHandler{n: 1}
	srv := New(h, nil, nil, discardLogger())

	client, conn := net.Pipe()
	defer client.Close()
	go srv.HandleConnection(context.Background(), conn)

	_, err := client.Write(handshakeBytes(testIMEI))
	require.NoError(t, err)
	readN(t, client, 1)

	both := append(codec.BuildPacket([]byte{7, 0, 0}), codec.BuildPacket([]byte{7, 0, 0})...)
	go func() { _, _ = client.Write(both) }()
	assert.Equal(t, []byte{0, 0, 0, 1}, readN(t, client, 4))
	assert.Equal(t, []byte{0, 0, 0, 1}, readN(t, client, 4))
}

func TestHandleConnection_RejectsBadIMEI(t *testing.T) {
	cases := map[string][]byte{
		"short length": {0x00, 0x05, '1', '2', '3', '4', '5'},
		"not digits":   handshakeBytes("35630704244101X"),
	}
	for name, hs := range cases {
		t.Run(name, func(t *testing.T) {
			h := &fakeHandler{}
			srv := New(h, nil, nil, discardLogger())
			client, conn := net.Pipe()
			defer client.Close()
			done := make(chan struct{})
			go func() {
				srv.HandleConnection(context.Background(), conn)
				close(done)
			}()

			go func() { _, _ = client.Write(hs) }()
			assert.Equal(t, []byte{0x00}, readN(t, client, 1))
			<-done
			assert.Equal(t, 0, srv.ActiveCount())
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &fakeHandler{n: 0}
	srv := New(h, nil, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	c, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write(handshakeBytes(testIMEI))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, readN(t, c, 1))

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
