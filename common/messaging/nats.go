package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/civiclens/permit-crawler/common/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NatsBroker is the NATS message broker used to dispatch crawl requests.
type NatsBroker struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config config.Config
}

// NewNatsBroker creates a new NATS message broker
func NewNatsBroker(cfg config.Config) (*NatsBroker, error) {

	client := &NatsBroker{
		config: cfg,
	}

	// Connect to NATS
	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect connects to the NATS server
func (c *NatsBroker) connect() error {
	var err error

	// Setup connection options
	opts := []nats.Option{
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("server", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).
				Str("subject", sub.Subject).
				Msg("Error handling NATS message")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	// Add auth if provided
	if c.config.Nats.Username != "" && c.config.Nats.Password != "" {
		opts = append(opts, nats.UserInfo(c.config.Nats.Username, c.config.Nats.Password))
	}

	// Connect to NATS
	c.conn, err = nats.Connect(c.config.Nats.URL(), opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Create JetStream context
	js, err := jetstream.New(c.conn)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	c.js = js

	log.Info().Str("server", c.conn.ConnectedUrl()).Msg("Connected to NATS")
	return nil
}

// Close closes the NATS connection
func (c *NatsBroker) Close() error {
	// Drain the connection (gracefully unsubscribe)
	if c.conn != nil && c.conn.IsConnected() {
		return c.conn.Drain()
	}
	return nil
}

// PublishSync publishes a message to a subject and waits for an acknowledgement.
// With JetStream disabled it degrades to a fire-and-forget core publish; the
// queue-group subscribers receive the message either way.
func (c *NatsBroker) PublishSync(ctx context.Context, subject string, data []byte) error {
	if !c.config.Nats.JetStreamEnabled {
		return c.Publish(subject, data)
	}
	if c.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	_, err := c.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Msg("Published message to NATS and received ack")

	return nil
}

// Publish publishes a message on core NATS without waiting for an ack.
func (c *NatsBroker) Publish(subject string, data []byte) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return fmt.Errorf("not connected to NATS")
	}
	return c.conn.Publish(subject, data)
}

// CreateStream creates a JetStream stream
func (c *NatsBroker) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if c.js == nil {
		return nil, fmt.Errorf("JetStream not initialized")
	}

	stream, err := c.js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("stream", cfg.Name).Msg("Failed to create or update stream")
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	log.Info().
		Str("name", cfg.Name).
		Strs("subjects", cfg.Subjects).
		Msg("Created JetStream stream")

	return stream, nil
}

// SubscribeToQueueGroup subscribes a handler to a subject inside a queue group
// so crawl requests for the same site are processed by a single instance.
func SubscribeToQueueGroup(broker *NatsBroker, subject, queue string, handler func(msg *nats.Msg) error) (*nats.Subscription, error) {
	if broker.conn == nil || !broker.conn.IsConnected() {
		return nil, fmt.Errorf("not connected to NATS")
	}

	sub, err := broker.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		if err := handler(msg); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("Message handler failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Str("queue", queue).Msg("Subscribed to NATS subject")
	return sub, nil
}

// SetupNatsBroker initializes the NATS client and, when JetStream is
// enabled, ensures the stream covering the crawl subjects exists. Without
// the stream a JetStream publish never gets a PubAck.
func SetupNatsBroker(cfg config.Config) (*NatsBroker, error) {

	client, err := NewNatsBroker(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating NATS client: %w", err)
	}

	if cfg.Nats.JetStreamEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := EnsureStream(ctx, client, StreamName, StreamSubjects()); err != nil {
			return nil, fmt.Errorf("ensuring %s stream: %w", StreamName, err)
		}
	}

	return client, nil
}
