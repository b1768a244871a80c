package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

var errNotConnected = errors.New("not connected to NATS JetStream")

const (
	clientName        = "broadcaster"
	reconnectWait     = 2 * time.Second
	maxReconnects     = 10
	streamMaxAge      = 7 * 24 * time.Hour
	duplicateWindow   = 2 * time.Minute
	streamDescription = "Broadcaster ledger events"
)

// NATSClient publishes to JetStream. It is safe for concurrent use.
type NATSClient struct {
	servers string

	mu sync.RWMutex
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewNATSClient creates a client for a comma separated server list
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{servers: servers}
}

func connectOptions(ctx context.Context) []nats.Option {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
				return
			}
			log.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("server", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			entry := log.WithError(err)
			if sub != nil {
				entry = entry.WithField("subject", sub.Subject)
			}
			entry.Error("NATS async error")
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	return opts
}

// Connect dials NATS and opens a JetStream context
func (c *NATSClient) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.servers, connectOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.mu.Lock()
	c.nc, c.js = nc, js
	c.mu.Unlock()

	log.WithField("servers", c.servers).Info("Connected to NATS with JetStream")
	return nil
}

// Close drains pending publishes and closes the connection
func (c *NATSClient) Close() error {
	c.mu.Lock()
	nc := c.nc
	c.nc, c.js = nil, nil
	c.mu.Unlock()

	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	log.Info("NATS connection closed")
	return nil
}

// IsConnected returns true if the client is connected to NATS
func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nc != nil && c.nc.IsConnected()
}

func (c *NATSClient) jetStream() (nats.JetStreamContext, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errNotConnected
	}
	return c.js, nil
}

// ensureStream creates the stream, or widens its subjects when new event types appeared
func (c *NATSClient) ensureStream(name string, subjects []string) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	cfg := &nats.StreamConfig{
		Name:        name,
		Description: streamDescription,
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		MaxAge:      streamMaxAge,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Duplicates:  duplicateWindow,
	}

	info, err := js.StreamInfo(name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
		log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Created JetStream stream")
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if sameSubjects(info.Config.Subjects, subjects) {
		log.WithField("stream", name).Debug("JetStream stream already up to date")
		return nil
	}
	if _, err := js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", name, err)
	}
	log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Updated JetStream stream subjects")
	return nil
}

// Publish writes data to subject. msgID lets JetStream drop redeliveries inside the duplicate window.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}

	ack, err := js.Publish(subject, data, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"size":      len(data),
		"sequence":  ack.Sequence,
		"duplicate": ack.Duplicate,
	}).Debug("Published message to NATS")
	return nil
}

func sameSubjects(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			return false
		}
	}
	return true
}
