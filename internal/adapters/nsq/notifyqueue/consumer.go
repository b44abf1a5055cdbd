package notifyqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

// Handler decodes notification jobs and hands them to a Notifier. Delivery is best-effort:
// failed and undecodable jobs are logged and finished, never requeued.
type Handler struct {
	ctx         context.Context
	notifier    notify.Notifier
	log         logrus.FieldLogger
	sendTimeout time.Duration
}

func NewHandler(ctx context.Context, n notify.Notifier, log logrus.FieldLogger, sendTimeout time.Duration) *Handler {
	return &Handler{ctx: ctx, notifier: n, log: log, sendTimeout: sendTimeout}
}

func (h *Handler) HandleMessage(m *nsq.Message) error {
	var c notify.Cancellation
	if err := json.Unmarshal(m.Body, &c); err != nil {
		h.log.WithError(err).WithField("message_id", string(m.ID[:])).Error("dropping undecodable notification")
		return nil
	}

	ctx := h.ctx
	if h.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
	}
	if err := h.notifier.NotifyCancellation(ctx, c); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"trip_id":   c.TripID,
			"recipient": c.RecipientEmail,
		}).Warn("cancellation notice not delivered")
	}
	return nil
}

// Consumer subscribes a Handler to the notification topic.
type Consumer struct {
	c *nsq.Consumer
}

func NewConsumer(topic, channel, addr string, workers int, h *Handler) (*Consumer, error) {
	cfg := nsq.NewConfig()
	if workers > 0 {
		cfg.MaxInFlight = workers
	}
	c, err := nsq.NewConsumer(topic, channel, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}
	c.SetLoggerLevel(nsq.LogLevelWarning)
	c.AddConcurrentHandlers(h, max(workers, 1))

	if err := c.ConnectToNSQD(addr); err != nil {
		c.Stop()
		return nil, fmt.Errorf("failed to connect to NSQ daemon: %w", err)
	}
	return &Consumer{c: c}, nil
}

// Stop stops the consumer and waits for in-flight handlers.
func (c *Consumer) Stop() {
	c.c.Stop()
	<-c.c.StopChan
}
