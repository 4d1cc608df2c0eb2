package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Exchange is the topic exchange order events are published to.
const Exchange = "canteen_orders"

// AMQPPublisher publishes events to a RabbitMQ topic exchange. Routing keys
// look like "order.created.shop.3" so consumers can bind per shop.
type AMQPPublisher struct {
	url  string
	log  *logger.Logger
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher that connects on Start.
func NewAMQPPublisher(url string, log *logger.Logger) *AMQPPublisher {
	if log == nil {
		log = logger.NewDefault("amqp")
	}
	return &AMQPPublisher{url: url, log: log}
}

// Name implements system.Service.
func (p *AMQPPublisher) Name() string { return "amqp-publisher" }

// Start dials the broker and declares the exchange.
func (p *AMQPPublisher) Start(context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.mu.Lock()
	p.conn, p.ch = conn, ch
	p.mu.Unlock()
	p.log.Infof("publishing order events to exchange %s", Exchange)
	return nil
}

// Stop closes the channel and connection.
func (p *AMQPPublisher) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// RoutingKey returns the key an event is published under.
func RoutingKey(evt Event) string {
	return fmt.Sprintf("%s.shop.%d", evt.Type, evt.ShopID)
}

// Publish sends evt as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("amqp publisher not started")
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := RoutingKey(evt)
	err = ch.PublishWithContext(ctx,
		Exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    evt.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.WithField("routing_key", key).Debug("order event published")
	return nil
}
