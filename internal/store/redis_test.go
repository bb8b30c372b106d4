package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghcodec-svr/internal/pipeline"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "dev:356307042441013:last", LastKey("356307042441013"))
	assert.Equal(t, "dev:356307042441013:io", IOKey("356307042441013"))
}

func TestIOFields(t *testing.T) {
	f := ioFields(map[string]int64{"239": 1})
	assert.Equal(t, []interface{}{"239", int64(1)}, f)
	assert.Empty(t, ioFields(nil))
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, "127.0.0.1:1", 0, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

// Requiere un Redis real: REDIS_TEST_ADDR=localhost:6379 go test ./internal/store
func TestRedis_PublishAndLast(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, 0, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	tr := &pipeline.TrackingObject{IMEI: "test-imei", Lat: 19.43, Spd: 35, IO: map[string]int64{"239": 1, "200": 100}}
	require.NoError(t, r.Publish(ctx, tr))

	got, err := r.Last(ctx, "test-imei")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 35, got.Spd)

	io, err := r.IOStates(ctx, "test-imei")
	require.NoError(t, err)
	assert.Equal(t, "100", io["200"])

	none, err := r.Last(ctx, "missing-imei")
	require.NoError(t, err)
	assert.Nil(t, none)
}
