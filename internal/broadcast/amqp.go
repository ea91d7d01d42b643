package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"workshop-chat-service/internal/observability"
)

// AMQPBroadcaster is the distributed delivery path. Delivery instructions are
// published to a fanout exchange; every instance consumes them and applies the
// fan-out against the connections it holds, so a message accepted on one
// instance reaches connections held by all of them.
//
// The connection is established lazily and re-established on the next attempt
// after a failure; a broker outage therefore degrades and recovers without any
// retry queue.
type AMQPBroadcaster struct {
	url      string
	exchange string
	sink     *LocalBroadcaster

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPBroadcaster constructs the distributed backend. An empty url leaves
// the backend permanently unreachable, which the resilient wrapper turns into
// local-only delivery.
func NewAMQPBroadcaster(url, exchange string, sink *LocalBroadcaster) *AMQPBroadcaster {
	return &AMQPBroadcaster{url: url, exchange: exchange, sink: sink}
}

func (b *AMQPBroadcaster) SendToConnection(ctx context.Context, connID string, method string, payload any) error {
	return b.SendToConnections(ctx, []string{connID}, method, payload)
}

func (b *AMQPBroadcaster) SendToConnections(ctx context.Context, connIDs []string, method string, payload any) error {
	env, err := newEnvelope(opConnections, method, payload)
	if err != nil {
		return err
	}
	env.ConnIDs = connIDs
	return b.publish(ctx, env)
}

func (b *AMQPBroadcaster) SendToGroup(ctx context.Context, groupID int, method string, payload any) error {
	return b.SendToGroups(ctx, []int{groupID}, method, payload)
}

func (b *AMQPBroadcaster) SendToGroups(ctx context.Context, groupIDs []int, method string, payload any) error {
	env, err := newEnvelope(opGroups, method, payload)
	if err != nil {
		return err
	}
	env.GroupIDs = groupIDs
	return b.publish(ctx, env)
}

func (b *AMQPBroadcaster) SendToGroupExcept(ctx context.Context, groupID int, excludedConnIDs []string, method string, payload any) error {
	env, err := newEnvelope(opGroupExcept, method, payload)
	if err != nil {
		return err
	}
	env.GroupIDs = []int{groupID}
	env.Excluded = excludedConnIDs
	return b.publish(ctx, env)
}

func (b *AMQPBroadcaster) SendToUser(ctx context.Context, userID int, method string, payload any) error {
	return b.SendToUsers(ctx, []int{userID}, method, payload)
}

func (b *AMQPBroadcaster) SendToUsers(ctx context.Context, userIDs []int, method string, payload any) error {
	env, err := newEnvelope(opUsers, method, payload)
	if err != nil {
		return err
	}
	env.UserIDs = userIDs
	return b.publish(ctx, env)
}

// Subscribe records no broker-side state: group membership is resolved against
// each instance's local table when an instruction is consumed. The call still
// verifies the transport so a degraded broker is reported to the caller.
func (b *AMQPBroadcaster) Subscribe(ctx context.Context, groupID int, conn Connection) error {
	if _, err := b.channel(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

// Unsubscribe mirrors Subscribe.
func (b *AMQPBroadcaster) Unsubscribe(ctx context.Context, groupID int, conn Connection) error {
	if _, err := b.channel(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

func (b *AMQPBroadcaster) publish(ctx context.Context, env envelope) error {
	ch, err := b.channel()
	if err != nil {
		observability.IncAMQPPublishError()
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		observability.IncAMQPPublishError()
		b.reset()
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

// channel returns a live channel, dialing the broker when needed. Each dial
// binds a fresh exclusive queue to the fanout exchange and starts a consumer
// that applies incoming instructions to the local sink.
func (b *AMQPBroadcaster) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil && !b.ch.IsClosed() {
		return b.ch, nil
	}
	if b.url == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(b.exchange, "fanout", false, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.conn = conn
	b.ch = ch
	go b.consume(deliveries)

	log.Printf("broadcast: amqp backend connected exchange=%s queue=%s", b.exchange, queue.Name)
	return ch, nil
}

func (b *AMQPBroadcaster) consume(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		var env envelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			log.Printf("broadcast: dropping malformed instruction: %v", err)
			continue
		}
		if err := b.sink.apply(env, "distributed"); err != nil {
			log.Printf("broadcast: apply %s instruction: %v", env.Op, err)
		}
	}
	log.Printf("broadcast: amqp consumer stopped, will redial on next delivery")
}

func (b *AMQPBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

// Close tears the broker connection down.
func (b *AMQPBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}
