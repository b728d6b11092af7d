package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_BadURL(t *testing.T) {
	client, err := NewClient(context.Background(), Config{URL: "not-a-redis-url"})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

type pendingEntry struct {
	msg         redis.XMessage
	deliveredAt time.Time
}

type memGroup struct {
	next    int
	pending map[string]pendingEntry
}

// memStreams keeps streams and consumer groups in memory.
type memStreams struct {
	mu      sync.Mutex
	seq     int
	entries map[string][]redis.XMessage
	groups  map[string]*memGroup
}

func newMemStreams() *memStreams {
	return &memStreams{
		entries: map[string][]redis.XMessage{},
		groups:  map[string]*memGroup{},
	}
}

func (m *memStreams) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("%d-0", m.seq)
	values := map[string]interface{}{}
	for k, v := range a.Values.(map[string]interface{}) {
		values[k] = string(v.([]byte))
	}
	m.entries[a.Stream] = append(m.entries[a.Stream], redis.XMessage{ID: id, Values: values})
	return redis.NewStringResult(id, nil)
}

func (m *memStreams) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stream + "/" + group
	if _, ok := m.groups[key]; ok {
		return redis.NewStatusResult("", errors.New("BUSYGROUP Consumer Group name already exists"))
	}
	m.groups[key] = &memGroup{pending: map[string]pendingEntry{}}
	return redis.NewStatusResult("OK", nil)
}

func (m *memStreams) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	stream := a.Streams[0]
	deadline := time.Now().Add(a.Block)
	for {
		m.mu.Lock()
		g := m.groups[stream+"/"+a.Group]
		entries := m.entries[stream]
		var out []redis.XMessage
		for g.next < len(entries) && int64(len(out)) < a.Count {
			msg := entries[g.next]
			g.next++
			g.pending[msg.ID] = pendingEntry{msg: msg, deliveredAt: time.Now()}
			out = append(out, msg)
		}
		m.mu.Unlock()

		if len(out) > 0 {
			return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: stream, Messages: out}}, nil)
		}
		if ctx.Err() != nil {
			return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
		}
		if time.Now().After(deadline) {
			return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *memStreams) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.groups[stream+"/"+group]
	var n int64
	for _, id := range ids {
		if _, ok := g.pending[id]; ok {
			delete(g.pending, id)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memStreams) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.groups[a.Stream+"/"+a.Group]
	var out []redis.XMessage
	for id, p := range g.pending {
		if time.Since(p.deliveredAt) < a.MinIdle {
			continue
		}
		g.pending[id] = pendingEntry{msg: p.msg, deliveredAt: time.Now()}
		out = append(out, p.msg)
	}
	cmd := redis.NewXAutoClaimCmd(ctx)
	cmd.SetVal(out, "0-0")
	return cmd
}

func (m *memStreams) Close() error { return nil }

func (m *memStreams) pendingCount(stream, group string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups[stream+"/"+group].pending)
}

type delivery struct {
	consumer string
	payload  string
}

func TestRedisBroker_PublishWithoutConsumerIsKept(t *testing.T) {
	streams := newMemStreams()
	broker := newBroker(streams, StreamConfig{Consumer: "worker-1", Block: 10 * time.Millisecond}, nil)

	require.NoError(t, broker.Publish(context.Background(), "practice.registered", map[string]string{"clinic_slug": "bright-smiles-dental"}))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- broker.Consume(ctx, "practice.registered", func(ctx context.Context, payload []byte) error {
			got <- string(payload)
			return nil
		})
	}()

	select {
	case p := <-got:
		assert.JSONEq(t, `{"clinic_slug":"bright-smiles-dental"}`, p)
	case <-time.After(2 * time.Second):
		t.Fatal("message published before the consumer started was lost")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, streams.pendingCount("practice.registered", "practice-worker"))
}

func TestRedisBroker_EachMessageGoesToOneReplica(t *testing.T) {
	streams := newMemStreams()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries := make(chan delivery, 20)
	var wg sync.WaitGroup
	for _, name := range []string{"worker-1", "worker-2"} {
		b := newBroker(streams, StreamConfig{Consumer: name, Block: 10 * time.Millisecond}, nil)
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = b.Consume(ctx, "practice.registered", func(ctx context.Context, payload []byte) error {
				deliveries <- delivery{consumer: name, payload: string(payload)}
				return nil
			})
		}(name)
	}

	publisher := newBroker(streams, StreamConfig{}, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, publisher.Publish(ctx, "practice.registered", i))
	}

	seen := map[string]int{}
	for i := 0; i < 5; i++ {
		select {
		case d := <-deliveries:
			seen[d.payload]++
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 5 messages delivered", i)
		}
	}
	cancel()
	wg.Wait()
	close(deliveries)
	for d := range deliveries {
		seen[d.payload]++
	}

	assert.Len(t, seen, 5)
	for payload, n := range seen {
		assert.Equal(t, 1, n, "payload %s delivered %d times", payload, n)
	}
}

func TestRedisBroker_FailedMessageIsRedelivered(t *testing.T) {
	streams := newMemStreams()
	broker := newBroker(streams, StreamConfig{
		Consumer:     "worker-1",
		Block:        10 * time.Millisecond,
		ClaimMinIdle: time.Millisecond,
	}, nil)
	require.NoError(t, broker.Publish(context.Background(), "practice.registered", "hello"))

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	acked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- broker.Consume(ctx, "practice.registered", func(ctx context.Context, payload []byte) error {
			attempts++
			if attempts == 1 {
				return errors.New("smtp down")
			}
			close(acked)
			return nil
		})
	}()

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("failed message was not redelivered")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 0, streams.pendingCount("practice.registered", "practice-worker"))
}
