package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-duel-service/internal/infra/memory"
	redisinfra "trivia-duel-service/internal/infra/redis"
)

func TestPickSequencer(t *testing.T) {
	if _, ok := pickSequencer(nil, false).(*memory.Sequencer); !ok {
		t.Fatalf("expected local counter for a single instance")
	}

	relayed := pickSequencer(nil, true)
	if _, ok := relayed.(memory.UnorderedSequencer); !ok {
		t.Fatalf("expected unsequenced broadcasts for a relay without redis, got %T", relayed)
	}
	if n, _ := relayed.Next(context.Background()); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	if _, ok := pickSequencer(client, true).(*redisinfra.Sequencer); !ok {
		t.Fatalf("expected shared redis counter")
	}
}
