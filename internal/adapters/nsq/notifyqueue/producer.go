// Package notifyqueue carries cancellation notices over NSQ. The API process publishes jobs;
// a consumer (in-process or a separate worker) delivers them through a notify.Notifier.
package notifyqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

// publisher is the subset of *nsq.Producer used here.
type publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// Producer implements notify.Queue.
type Producer struct {
	p     publisher
	topic string
}

func NewProducer(addr, topic string) (*Producer, error) {
	p, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	if err := p.Ping(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}
	return &Producer{p: p, topic: topic}, nil
}

func (p *Producer) Enqueue(ctx context.Context, c notify.Cancellation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.p.Publish(p.topic, body); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (p *Producer) Stop() { p.p.Stop() }
