package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TCPConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghcodec_tcp_connections_total",
		Help: "Total de conexiones TCP aceptadas",
	})
	HandshakeOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghcodec_handshake_ok_total",
		Help: "Total de handshakes IMEI ok",
	})
	PacketsRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghcodec_packets_received_total",
		Help: "Total de paquetes AVL recibidos (frames)",
	})
	RecordsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghcodec_records_decoded_total",
		Help: "Total de records GH decodificados",
	})
	RecordsAck = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghcodec_records_ack_total",
		Help: "Total de registros AVL confirmados al dispositivo",
	})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghcodec_decode_errors_total",
		Help: "Errores al decodificar frames, por tipo",
	}, []string{"kind"})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghcodec_sink_errors_total",
		Help: "Errores al publicar trackings, por destino",
	}, []string{"sink"})
	ParseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghcodec_parse_latency_seconds",
		Help:    "Latencia del parseo por frame",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveParseLatency(start time.Time) {
	ParseLatency.Observe(time.Since(start).Seconds())
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer sirve /metrics y /healthz hasta que ctx termine.
func StartMetricsServer(ctx context.Context, port string) error {
	srv := &http.Server{Addr: ":" + port, Handler: metricsMux()}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
