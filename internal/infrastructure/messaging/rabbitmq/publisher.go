package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	reqctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

const (
	DefaultExchange = "account.events"

	// window to wait for Return / Confirm
	publishWait = 2 * time.Second
)

// Publisher sends account events to a durable topic exchange with
// publisher confirms. The routing key is the event type.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// Healthy reports whether the underlying connection is open.
func (p *Publisher) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil
}

// Ping reports a closed connection as rabbit_unavailable. The next publish
// reconnects.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.Healthy() {
		return domain.ErrRabbitUnavailable(errors.New("connection closed"))
	}
	return nil
}

func (p *Publisher) PublishAccountEvent(ctx context.Context, evt account.Event) error {
	msg, err := newPublishing(ctx, evt)
	if err != nil {
		return err
	}
	return p.publish(ctx, routingKey(evt), msg)
}

func routingKey(evt account.Event) string {
	return string(evt.Type)
}

// newPublishing builds the persistent JSON message for evt. The request id,
// when present, travels in the X-Request-ID header.
func newPublishing(ctx context.Context, evt account.Event) (amqp.Publishing, error) {
	if evt.Type == "" {
		return amqp.Publishing{}, domain.ErrInternal(fmt.Errorf("account event without type"))
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, domain.ErrInternal(fmt.Errorf("marshal event: %w", err))
	}

	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if rid := reqctx.GetRequestID(ctx); rid != "" {
		msg.Headers = amqp.Table{"X-Request-ID": rid}
	}
	return msg, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return domain.ErrRabbitUnavailable(fmt.Errorf("dial: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return domain.ErrRabbitUnavailable(fmt.Errorf("channel: %w", err))
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return domain.ErrRabbitUnavailable(fmt.Errorf("exchange declare: %w", err))
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return domain.ErrRabbitUnavailable(fmt.Errorf("confirm mode: %w", err))
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// drop stale confirms / returns from an earlier timed-out publish
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	// not mandatory: an event nobody is bound to yet is not an error
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		p.resetConn()
		return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: %w", key, err))
	}

	select {
	case conf, ok := <-p.confirmCh:
		if !ok {
			p.resetConn()
			return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: channel closed", key))
		}
		if !conf.Ack {
			return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: nack tag=%d", key, conf.DeliveryTag))
		}
		return nil
	case <-ctx.Done():
		return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: %w", key, ctx.Err()))
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
