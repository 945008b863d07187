package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishSignupPromoted delivers one SignupPromotedEvent to the
// promotion queue.  The message is persistent, so an event accepted by
// the broker is not lost on restart.  Promotion notifying is best
// effort: the caller runs off the request path and only logs failures,
// so this function never retries on its own.
func PublishSignupPromoted(ctx context.Context, event SignupPromotedEvent) error {
	conn, err := amqp.Dial(BrokerURL())
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(PromotedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", PromotedQueue, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", PromotedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", PromotedQueue, err)
	}
	return nil
}
