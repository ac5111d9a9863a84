package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

// QuestionCache stores successful generations in Redis and falls back to the
// wrapped source on a miss. Entries are stored as JSON under
// questions:{topic}|{difficulty}|{mode}|{count}.
type QuestionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	log    *zap.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration, logger *zap.Logger) *QuestionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		log:    logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	key := c.key(req)
	if qs, ok := c.lookup(ctx, key); ok {
		return qs, nil
	}

	// Callers coalesced on one key share the result; each gets its own copy.
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.lookup(ctx, key); ok {
			return qs, nil
		}

		qs, err := c.source.Questions(ctx, req)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(qs)
		if err == nil {
			err = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		if err != nil {
			c.log.Warn("question cache write failed", zap.String("key", key), zap.Error(err))
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (c *QuestionCache) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("question cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) key(req domain.QuestionRequest) string {
	return "questions:" + app.QuestionCacheKey(req)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
