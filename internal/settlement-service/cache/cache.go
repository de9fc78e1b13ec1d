package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/pool-settlement/internal/settlement/liability"
)

// Cache guarda no Redis o resultado canônico das apurações e os snapshots de exposição.
// Resultado apurado é imutável; exposição muda a cada venda e é invalidada por concurso.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keySettlement(drawID string) string { return "settlement:draw:" + drawID }

// hash por concurso, um campo por "top": uma venda derruba todos de uma vez
func keyExposure(drawID string) string { return "exposure:draw:" + drawID }

func (c *Cache) GetSettlement(ctx context.Context, drawID string) ([]byte, bool, error) {
	b, err := c.R.Get(ctx, keySettlement(drawID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Cache) SetSettlement(ctx context.Context, drawID string, raw []byte, ttl time.Duration) error {
	return c.R.Set(ctx, keySettlement(drawID), raw, ttl).Err()
}

func (c *Cache) GetExposure(ctx context.Context, drawID string, top int) (liability.Report, bool, error) {
	var rep liability.Report
	b, err := c.R.HGet(ctx, keyExposure(drawID), strconv.Itoa(top)).Bytes()
	if err == redis.Nil {
		return rep, false, nil
	}
	if err != nil {
		return rep, false, err
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, false, err
	}
	return rep, true, nil
}

func (c *Cache) SetExposure(ctx context.Context, drawID string, top int, rep liability.Report, ttl time.Duration) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	key := keyExposure(drawID)
	pipe := c.R.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(top), b)
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Cache) InvalidateExposure(ctx context.Context, drawID string) error {
	return c.R.Del(ctx, keyExposure(drawID)).Err()
}
