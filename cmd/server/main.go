package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghcodec-svr/internal/config"
	"ghcodec-svr/internal/dispatcher"
	"ghcodec-svr/internal/grpcclient"
	"ghcodec-svr/internal/link"
	"ghcodec-svr/internal/observability"
	"ghcodec-svr/internal/publish"
	"ghcodec-svr/internal/server"
	"ghcodec-svr/internal/store"
	"ghcodec-svr/internal/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel)
	logger.Info("Starting ghcodec-svr...", "port", cfg.TCPPort)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var sinks []dispatcher.Sink

	// Inicializar Redis antes del server
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := store.NewRedis(pingCtx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisTTL)
	pingCancel()
	if err != nil {
		logger.Error("Redis init failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	sinks = append(sinks, rdb)

	var proxy *link.Client
	if cfg.ProxyAddr != "" {
		proxy = link.New(cfg.ProxyAddr, logger)
		go proxy.Run(ctx)
		sinks = append(sinks, proxy)
	} else {
		logger.Info("link: disabled (no proxy address configured)")
	}

	if cfg.GRPCServer != "" {
		fwd, err := grpcclient.NewForwarder(cfg.GRPCServer)
		if err != nil {
			logger.Error("gRPC forwarder init failed", "error", err)
			os.Exit(1)
		}
		defer fwd.Close()
		sinks = append(sinks, fwd)
	}

	if cfg.MQTTBroker != "" {
		mq, err := publish.NewMQTT(cfg.MQTTBroker, "ghcodec-svr", cfg.MQTTTopic)
		if err != nil {
			logger.Error("MQTT init failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()
		sinks = append(sinks, mq)
	}

	archive, err := utilities.NewFrameArchive(cfg.ArchivePath)
	if err != nil {
		logger.Error("archive init failed", "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	go func() {
		if err := observability.StartMetricsServer(ctx, cfg.MetricsPort); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	onConnect := func(imei string, remote net.Addr) {
		if proxy == nil {
			return
		}
		info := link.DeviceInfo{IMEI: imei, Codec: "GH"}
		if tcp, ok := remote.(*net.TCPAddr); ok {
			info.RemoteIP = tcp.IP.String()
			info.RemotePort = tcp.Port
		}
		proxy.SendDeviceConnect(info)
	}

	disp := dispatcher.New(logger, sinks...)
	srv := server.New(disp, archive, onConnect, logger)
	if err := srv.Start(ctx, ":"+cfg.TCPPort); err != nil {
		logger.Error("TCP server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
