package notifyqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/notifier"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

type fakePublisher struct {
	topic string
	body  []byte
	err   error
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	f.topic, f.body = topic, body
	return f.err
}

func (f *fakePublisher) Stop() {}

func message(t *testing.T, body []byte) *nsq.Message {
	t.Helper()
	var id nsq.MessageID
	copy(id[:], "0123456789abcdef")
	return nsq.NewMessage(id, body)
}

func TestProducer_PublishesJSON(t *testing.T) {
	t.Parallel()

	fp := &fakePublisher{}
	p := &Producer{p: fp, topic: "trip-cancellations"}
	c := notify.Cancellation{TripID: "t1", RecipientEmail: "rider@example.com", RefundAmount: 10}

	require.NoError(t, p.Enqueue(context.Background(), c))
	assert.Equal(t, "trip-cancellations", fp.topic)

	var got notify.Cancellation
	require.NoError(t, json.Unmarshal(fp.body, &got))
	assert.Equal(t, c, got)
}

func TestProducer_WrapsPublishError(t *testing.T) {
	t.Parallel()

	p := &Producer{p: &fakePublisher{err: errors.New("connection refused")}, topic: "x"}
	err := p.Enqueue(context.Background(), notify.Cancellation{TripID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish notification")
}

func TestHandler_DeliversDecodedJob(t *testing.T) {
	t.Parallel()

	rec := notifier.NewRecorder(nil)
	h := NewHandler(context.Background(), rec, logger.Discard(), 0)
	body, _ := json.Marshal(notify.Cancellation{TripID: "t1", RecipientEmail: "rider@example.com"})

	require.NoError(t, h.HandleMessage(message(t, body)))
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, "rider@example.com", rec.Sent()[0].RecipientEmail)
}

func TestHandler_NeverRequeues(t *testing.T) {
	t.Parallel()

	rec := notifier.NewRecorder(nil)
	rec.FailFor("rider@example.com", errors.New("smtp down"))
	h := NewHandler(context.Background(), rec, logger.Discard(), 0)
	body, _ := json.Marshal(notify.Cancellation{TripID: "t1", RecipientEmail: "rider@example.com"})

	assert.NoError(t, h.HandleMessage(message(t, body)))
	assert.NoError(t, h.HandleMessage(message(t, []byte("{not json"))))
	assert.Empty(t, rec.Sent())
}
