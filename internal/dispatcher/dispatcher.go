package dispatcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ghcodec-svr/internal/codec"
	"ghcodec-svr/internal/observability"
	"ghcodec-svr/internal/pipeline"
)

// Sink recibe cada tracking decodificado (redis, proxy, gRPC, MQTT).
type Sink interface {
	Name() string
	Publish(ctx context.Context, tr *pipeline.TrackingObject) error
}

var ErrUnknownCodec = errors.New("unknown codec id")

type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

func New(lg *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:  sinks,
		logger: lg.With("component", "dispatcher"),
		now:    time.Now,
	}
}

// ProcessIncoming decodifica el payload de un paquete y lo reparte a los
// sinks. Devuelve cuántos records confirmar al equipo (0 si falla el decode).
// Un sink que falla no rechaza el frame.
func (d *Dispatcher) ProcessIncoming(ctx context.Context, imei string, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("empty payload")
	}
	c, ok := codec.ForID(payload[0])
	if !ok {
		observability.DecodeErrors.WithLabelValues("unknown_codec").Inc()
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownCodec, payload[0])
	}

	start := time.Now()
	records, err := c.Decode(payload)
	observability.ObserveParseLatency(start)
	if err != nil {
		kind, _ := codec.KindOf(err)
		observability.DecodeErrors.WithLabelValues(kind.String()).Inc()
		d.logger.Error("decode failed",
			"imei", imei,
			"codec", c.Name(),
			"kind", kind.String(),
			"err", err,
			"raw", hex.EncodeToString(payload),
		)
		return 0, err
	}
	observability.RecordsDecoded.Add(float64(len(records)))

	for _, tr := range pipeline.BuildTrackings(imei, records, d.now()) {
		for _, s := range d.sinks {
			if err := s.Publish(ctx, tr); err != nil {
				observability.SinkErrors.WithLabelValues(s.Name()).Inc()
				d.logger.Warn("sink publish failed", "sink", s.Name(), "imei", imei, "err", err)
			}
		}
	}

	d.logger.Debug("frame processed", "imei", imei, "codec", c.Name(), "records", len(records))
	return len(records), nil
}
