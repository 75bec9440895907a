package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	at := time.Date(2024, 2, 14, 10, 5, 0, 0, time.UTC)
	require.NoError(t, q.Publish(ctx, NewMessage(TypeCheckIn, "ada@example.com", at)))
	require.NoError(t, q.Publish(ctx, NewMessage(TypeCheckOut, "ada@example.com", at.Add(8*time.Hour))))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-msgs
	second := <-msgs
	assert.Equal(t, TypeCheckIn, first.Type)
	assert.Equal(t, TypeCheckOut, second.Type)
	assert.NotEqual(t, first.ID, second.ID)

	cancel()
	_, open := <-msgs
	assert.False(t, open)
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), NewMessage(TypeCheckIn, "a@b.c", time.Now())))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, NewMessage(TypeCheckIn, "a@b.c", time.Now())), context.DeadlineExceeded)
}

func TestDecode(t *testing.T) {
	msg := NewMessage(TypeCheckIn, "ada@example.com", time.Date(2024, 2, 14, 10, 5, 0, 0, time.UTC))
	s, err := encode(msg)
	require.NoError(t, err)

	got, err := decode(s)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.True(t, msg.At.Equal(got.At))

	_, err = decode("checkin|1234")
	assert.Error(t, err)
	_, err = decode(`{"type":"checkin"}`)
	assert.Error(t, err)
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	key := "faceattend:test:" + time.Now().Format("150405.000000")
	defer client.Del(context.Background(), key)

	q := NewRedisQueue(client, key)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	want := NewMessage(TypeCheckIn, "ada@example.com", time.Now().UTC())
	require.NoError(t, q.Publish(ctx, want))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	got := <-msgs
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.UserEmail, got.UserEmail)
}
