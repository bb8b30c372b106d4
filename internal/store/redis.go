package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ghcodec-svr/internal/pipeline"
)

// Redis guarda el último tracking de cada IMEI y sus IO.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Close() error { return r.rdb.Close() }

func LastKey(imei string) string { return "dev:" + imei + ":last" }

func IOKey(imei string) string { return "dev:" + imei + ":io" }

// Publish hace SET del último tracking y HSET de cada IO en un pipeline.
func (r *Redis) Publish(ctx context.Context, tr *pipeline.TrackingObject) error {
	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, LastKey(tr.IMEI), b, r.ttl)
	if len(tr.IO) > 0 {
		pipe.HSet(ctx, IOKey(tr.IMEI), ioFields(tr.IO)...)
		pipe.Expire(ctx, IOKey(tr.IMEI), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", tr.IMEI, err)
	}
	return nil
}

// Last lee el último tracking guardado; (nil, nil) si no hay.
func (r *Redis) Last(ctx context.Context, imei string) (*pipeline.TrackingObject, error) {
	val, err := r.rdb.Get(ctx, LastKey(imei)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tr pipeline.TrackingObject
	if err := json.Unmarshal(val, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// IOStates devuelve los valores IO guardados para un IMEI.
func (r *Redis) IOStates(ctx context.Context, imei string) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, IOKey(imei)).Result()
}

func ioFields(io map[string]int64) []interface{} {
	out := make([]interface{}, 0, len(io)*2)
	for k, v := range io {
		out = append(out, k, v)
	}
	return out
}
