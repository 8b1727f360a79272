package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *RedisPublisher) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, NewRedisPublisher(client, "medref:referral-events")
}

func TestRedisPublisher_AppendsToStream(t *testing.T) {
	client, pub := setupTestRedis(t)
	ctx := context.Background()

	at := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)
	e := New(ReferralCreated, "3f1c0d2e-0000-4000-8000-000000000001", at, map[string]string{
		"referral_number": "REF2024006",
		"status":          "pending",
	})
	require.NoError(t, pub.Publish(ctx, e))

	msgs, err := client.XRange(ctx, "medref:referral-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	v := msgs[0].Values
	assert.Equal(t, e.ID, v["id"])
	assert.Equal(t, ReferralCreated, v["type"])
	assert.Equal(t, e.Subject, v["subject"])
	assert.Equal(t, "2026-10-01T08:30:00Z", v["occurred_at"])
	assert.Equal(t, "REF2024006", v["referral_number"])
	assert.Equal(t, "pending", v["status"])
}

func TestRedisPublisher_ReservedAttributesIgnored(t *testing.T) {
	client, pub := setupTestRedis(t)
	ctx := context.Background()

	e := New(ReferralCreated, "subj", time.Now(), map[string]string{"type": "spoofed"})
	require.NoError(t, pub.Publish(ctx, e))

	msgs, err := client.XRange(ctx, "medref:referral-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, ReferralCreated, msgs[0].Values["type"])
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	pub := NewRedisPublisher(client, "s")
	mr.Close()

	err := pub.Publish(context.Background(), New(ReferralCreated, "x", time.Now(), nil))
	assert.Error(t, err)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_WritesJSONKeyedBySubject(t *testing.T) {
	w := &fakeWriter{}
	pub := &KafkaPublisher{w: w}

	e := New(ReferralCreated, "ref-id-1", time.Now().UTC(), map[string]string{"status": "approved"})
	require.NoError(t, pub.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ref-id-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, ReferralCreated, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, "approved", decoded.Attributes["status"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	pub := &KafkaPublisher{w: &fakeWriter{err: errors.New("leader not available")}}
	err := pub.Publish(context.Background(), New(ReferralCreated, "x", time.Now(), nil))
	assert.Error(t, err)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	pub := &KafkaPublisher{w: w}
	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}
