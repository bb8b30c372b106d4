package grpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"ghcodec-svr/internal/pipeline"
)

// SendDataMethod es el RPC unario del forwarder. El request es un
// google.protobuf.Struct {device_id, payload} y la respuesta un BoolValue.
const SendDataMethod = "/forwarder.Forwarder/SendData"

const sendTimeout = 5 * time.Second

type Forwarder struct {
	conn *grpc.ClientConn
}

func NewForwarder(addr string, opts ...grpc.DialOption) (*Forwarder, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Forwarder{conn: conn}, nil
}

func (f *Forwarder) Name() string { return "grpc" }

func (f *Forwarder) Close() error {
	return f.conn.Close()
}

func (f *Forwarder) SendData(ctx context.Context, deviceID, payload string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := structpb.NewStruct(map[string]interface{}{
		"device_id": deviceID,
		"payload":   payload,
	})
	if err != nil {
		return err
	}

	res := &wrapperspb.BoolValue{}
	if err := f.conn.Invoke(ctx, SendDataMethod, req, res); err != nil {
		return err
	}
	if !res.GetValue() {
		return fmt.Errorf("forwarder: failed to send data for device %s", deviceID)
	}
	return nil
}

// Publish reenvía el tracking serializado como JSON.
func (f *Forwarder) Publish(ctx context.Context, tr *pipeline.TrackingObject) error {
	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return f.SendData(ctx, tr.IMEI, string(b))
}
