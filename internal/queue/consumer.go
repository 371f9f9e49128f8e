package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/placement-portal/internal/mail"
)

const maxBackoff = 30 * time.Second

// StartMailConsumer consumes the mail queue and delivers each event
// through sender.  It reconnects with exponential backoff and returns
// only when ctx is cancelled.
func StartMailConsumer(ctx context.Context, url, queueName string, sender mail.Sender) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, sender)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("mail-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, sender mail.Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warnf("mail-consumer: set QoS failed: %v", err)
	}
	if err := declare(ch, queueName); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d.Body, sender); err != nil {
				log.Errorf("mail-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // drop; requeueing a bad message would spin
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one delivery, renders it and sends it.
func HandleMessage(ctx context.Context, body []byte, sender mail.Sender) error {
	var ev MailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.To == "" {
		return errors.New("event without recipient")
	}
	msg, err := mail.Render(ev.Kind, ev.Name, ev.Data)
	if err != nil {
		return err
	}
	msg.To = ev.To
	sctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return sender.Send(sctx, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
