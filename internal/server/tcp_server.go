package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"ghcodec-svr/internal/codec"
	"ghcodec-svr/internal/observability"
)

// FrameHandler procesa el payload de un paquete y devuelve cuántos
// records aceptar.
type FrameHandler interface {
	ProcessIncoming(ctx context.Context, imei string, payload []byte) (int, error)
}

// Archiver guarda los paquetes crudos.
type Archiver interface {
	Write(imei string, data []byte) error
}

// ConnectHook se llama después de un handshake aceptado.
type ConnectHook func(imei string, remote net.Addr)

const (
	imeiLen     = 15
	readTimeout = 5 * time.Minute
)

type TcpServer struct {
	handler   FrameHandler
	archive   Archiver
	onConnect ConnectHook
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]net.Conn
}

func New(handler FrameHandler, archive Archiver, onConnect ConnectHook, lg *slog.Logger) *TcpServer {
	return &TcpServer{
		handler:   handler,
		archive:   archive,
		onConnect: onConnect,
		logger:    lg.With("component", "server"),
		active:    make(map[string]net.Conn),
	}
}

// Start acepta conexiones hasta que ctx termine.
func (srv *TcpServer) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error starting TCP server: %w", err)
	}
	return srv.Serve(ctx, listener)
}

func (srv *TcpServer) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	srv.logger.Info("TCP Server listening", "addr", listener.Addr().String())

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			srv.logger.Error("accept error", "err", err)
			continue
		}
		observability.TCPConnections.Inc()

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			srv.HandleConnection(ctx, c)
		}(conn)
	}
}

// ActiveCount devuelve cuántos dispositivos están conectados.
func (srv *TcpServer) ActiveCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.active)
}

func (srv *TcpServer) register(imei string, conn net.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if old, ok := srv.active[imei]; ok && old != conn {
		_ = old.Close()
	}
	srv.active[imei] = conn
}

func (srv *TcpServer) unregister(imei string, conn net.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.active[imei] == conn {
		delete(srv.active, imei)
	}
}

func (srv *TcpServer) HandleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(60 * time.Second)
	}

	imei, err := srv.handshake(conn)
	if err != nil {
		srv.logger.Warn("handshake failed", "remote", conn.RemoteAddr().String(), "err", err)
		return
	}
	observability.HandshakeOK.Inc()
	srv.register(imei, conn)
	defer func() {
		srv.unregister(imei, conn)
		srv.logger.Info("device disconnected", "imei", imei)
	}()
	srv.logger.Info("IMEI detected", "imei", imei, "remote", conn.RemoteAddr().String())
	if srv.onConnect != nil {
		srv.onConnect(imei, conn.RemoteAddr())
	}

	var pending []byte
	buffer := make([]byte, 2048)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)
			pending, err = srv.drain(ctx, conn, imei, pending)
			if err != nil {
				srv.logger.Error("bad packet, closing", "imei", imei, "err", err)
				return
			}
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				srv.logger.Warn("read error", "imei", imei, "err", err)
			}
			return
		}
	}
}

// handshake lee len:u16 imei[len] y responde 0x01.
func (srv *TcpServer) handshake(conn net.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var hdr [2]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n != imeiLen {
		_, _ = conn.Write([]byte{0x00})
		return "", fmt.Errorf("unexpected IMEI length %d", n)
	}
	imei := make([]byte, n)
	if _, err := io.ReadFull(conn, imei); err != nil {
		return "", err
	}
	for _, b := range imei {
		if b < '0' || b > '9' {
			_, _ = conn.Write([]byte{0x00})
			return "", fmt.Errorf("invalid IMEI %q", imei)
		}
	}
	if _, err := conn.Write([]byte{0x01}); err != nil {
		return "", err
	}
	return string(imei), nil
}

// drain procesa todos los paquetes completos en buf y devuelve lo que sobra.
func (srv *TcpServer) drain(ctx context.Context, conn net.Conn, imei string, buf []byte) ([]byte, error) {
	for len(buf) > 0 {
		payload, consumed, err := codec.ParsePacket(buf)
		if errors.Is(err, codec.ErrIncompletePacket) {
			return buf, nil
		}
		if err != nil && consumed == 0 {
			// preámbulo o tamaño inválido: no hay forma de resincronizar
			return nil, err
		}
		observability.PacketsRecv.Inc()
		if srv.archive != nil {
			if aerr := srv.archive.Write(imei, buf[:consumed]); aerr != nil {
				srv.logger.Warn("archive write failed", "err", aerr)
			}
		}

		accepted := 0
		if err != nil {
			srv.logger.Warn("dropping packet", "imei", imei, "err", err)
		} else if accepted, err = srv.handler.ProcessIncoming(ctx, imei, payload); err != nil {
			accepted = 0
		}
		if _, werr := conn.Write(codec.BuildAck(accepted)); werr != nil {
			return nil, werr
		}
		observability.RecordsAck.Add(float64(accepted))

		buf = buf[consumed:]
	}
	return buf[:0], nil
}
