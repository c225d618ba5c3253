package redis

import (
	"context"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kids-activity-service/internal/app"
	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/infra/memory"
)

func TestPlaythroughStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewPlaythroughStore(client, time.Minute)
	repo := memory.NewActivityRepository(memory.NewStaticActivityLoader(map[string]domain.Activity{
		"sustainability-kids-3": sampleActivity(),
	}), time.Minute)
	service := app.NewPlayService(repo, nil, store)

	started, err := service.Start(context.Background(), "sustainability-kids-3", domain.NavState{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	key := "activity:playthrough:" + started.PlaythroughID
	if !mr.Exists(key) {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get(key); got != "sustainability-kids-3" {
		t.Fatalf("expected activity id as marker, got %q", got)
	}

	service.End(context.Background(), started.PlaythroughID)
	if mr.Exists(key) {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestPlaythroughStorePutDoesNotHoldLockDuringRedisCall(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	dialing := make(chan struct{}, 1)
	release := make(chan struct{})
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			select {
			case dialing <- struct{}{}:
			default:
			}
			<-release
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	})
	defer client.Close()

	store := NewPlaythroughStore(client, time.Minute)
	repo := memory.NewActivityRepository(memory.NewStaticActivityLoader(map[string]domain.Activity{
		"sustainability-kids-3": sampleActivity(),
	}), time.Minute)

	started := make(chan string, 1)
	go func() {
		// Start ends in store.Put, which stalls on the blocked dial
		s, err := app.NewPlayService(repo, nil, store).Start(context.Background(), "sustainability-kids-3", domain.NavState{})
		if err != nil {
			started <- ""
			return
		}
		started <- s.PlaythroughID
	}()

	select {
	case <-dialing:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatalf("expected Put to reach redis")
	}

	done := make(chan struct{})
	go func() {
		store.Delete("unknown")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		close(release)
		t.Fatalf("Delete blocked behind a slow redis Set")
	}

	close(release)
	select {
	case id := <-started:
		if id == "" {
			t.Fatalf("start failed")
		}
		if _, ok := store.Get(id); !ok {
			t.Fatalf("expected playthrough stored")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("start did not finish after redis recovered")
	}
}
