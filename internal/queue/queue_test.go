package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "a", Body: json.RawMessage(`1`)}))
	require.NoError(t, q.Publish(ctx, Message{Type: "b", Body: json.RawMessage(`2`)}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	first := receive(t, msgs)
	second := receive(t, msgs)
	assert.Equal(t, "a", first.Type)
	assert.Equal(t, "b", second.Type)
	assert.JSONEq(t, `2`, string(second.Body))
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer channel was not closed")
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Publish(ctx, Message{Type: "y"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "test:events")
	q.wait = time.Second
	require.NoError(t, q.Publish(ctx, Message{Type: "a", Body: json.RawMessage(`{"n":1}`)}))
	_, err := mr.Lpush("test:events", "garbage")
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, Message{Type: "b", Body: json.RawMessage(`{"n":2}`)}))
	assert.Error(t, q.Publish(ctx, Message{}))

	stored, err := mr.List("test:events")
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	first := receive(t, msgs)
	second := receive(t, msgs)
	assert.Equal(t, "a", first.Type)
	assert.Equal(t, "b", second.Type, "undecodable entries are skipped")
	assert.JSONEq(t, `{"n":2}`, string(second.Body))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-msgs:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond, "consumer channel was not closed")
}

func TestRedisQueueNeedsClient(t *testing.T) {
	_, err := NewRedisQueue(nil, "").Consume(context.Background())
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	raw, err := Encode(Message{Type: "checkin.created", Body: json.RawMessage(`{"id":"c1"}`)})
	require.NoError(t, err)

	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "checkin.created", msg.Type)
	assert.JSONEq(t, `{"id":"c1"}`, string(msg.Body))

	_, err = Encode(Message{})
	assert.Error(t, err)
	_, err = Decode("checkin|c1")
	assert.Error(t, err)
	_, err = Decode(`{"body":{}}`)
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}
