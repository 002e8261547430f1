// Package bus is the service runtime every Alicia component embeds: it owns
// the single broker connection, encodes/decodes the message envelope,
// reconnects with backoff, and dispatches each subscribed topic's messages
// in delivery order through a bounded per-topic channel.
package bus

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/metrics"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the service runtime's connection lifecycle state.
type State string

const (
	StateInit          State = "INIT"
	StateConnecting    State = "CONNECTING"
	StateOnline        State = "ONLINE"
	StateReconnecting  State = "RECONNECTING"
	StateShutdown      State = "SHUTDOWN"
)

// Handler processes one decoded envelope received on a subscribed topic.
type Handler func(ctx context.Context, env *types.Envelope)

// Config configures a Client's broker connection.
type Config struct {
	BrokerURL      string // e.g. "mqtt://localhost:1883"
	ServiceName    string
	Username       string
	Password       string
	KeepAlive      uint16        // seconds, default 60
	HealthInterval time.Duration // default 30s
	QueueSize      int           // per-topic handler queue depth, default 64
}

func (c Config) defaulted() Config {
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	return c
}

type subscription struct {
	topic   string
	handler Handler
	queue   chan *types.Envelope
	once    sync.Once
}

// Client is the bus connection and dispatch substrate embedded by every
// Alicia service.
type Client struct {
	cfg Config
	log zerolog.Logger

	cm *autopaho.ConnectionManager

	state atomic.Value // State

	subsMu sync.Mutex
	subs   map[string]*subscription

	dedup *dedupCache

	startedAt  time.Time
	msgCount   atomic.Int64
	errorCount atomic.Int64

	healthStop chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a Client in state INIT. Call Connect to dial the broker.
func New(cfg Config) *Client {
	cfg = cfg.defaulted()
	c := &Client{
		cfg:        cfg,
		log:        log.WithServiceID(cfg.ServiceName),
		subs:       make(map[string]*subscription),
		dedup:      newDedupCache(),
		healthStop: make(chan struct{}),
	}
	c.setState(StateInit)
	return c
}

func (c *Client) setState(s State) {
	prev, _ := c.state.Load().(State)
	c.state.Store(s)
	metrics.ServiceState.WithLabelValues(c.cfg.ServiceName, string(s)).Set(1)
	if prev != "" && prev != s {
		metrics.ServiceState.WithLabelValues(c.cfg.ServiceName, string(prev)).Set(0)
	}
	c.log.Info().Str("state", string(s)).Msg("service runtime state transition")
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	s, _ := c.state.Load().(State)
	return s
}

// Connect dials the broker with credentials, arms the last-will
// unregister message, and begins autopaho's managed reconnect loop
// (exponential backoff with jitter, capped, handled internally by
// autopaho once the connection is established).
func (c *Client) Connect(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.setState(StateConnecting)

	brokerURL, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "parse broker url", err)
	}

	willPayload, err := EncodeEnvelope(NewEnvelope(c.cfg.ServiceName, map[string]any{
		"service": c.cfg.ServiceName,
		"status":  string(types.ServiceStatusOffline),
	}, PublishOptions{Destination: "broadcast", MessageType: types.MessageTypeEvent}))
	if err != nil {
		return err
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       c.cfg.KeepAlive,
		ConnectUsername: c.cfg.Username,
		ConnectPassword: []byte(c.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   TopicDiscoveryUnregister,
			Payload: willPayload,
			QoS:     1,
			Retain:  false,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			c.onConnectionUp(cm)
		},
		OnConnectError: func(err error) {
			c.setState(StateReconnecting)
			c.log.Warn().Err(err).Msg("broker connection attempt failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: fmt.Sprintf("%s-%s", c.cfg.ServiceName, uuid.NewString()[:8]),
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(c.ctx, pahoCfg)
	if err != nil {
		return errs.Wrap(errs.KindTransport, "connect to broker", err)
	}
	c.cm = cm

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		c.dispatch(pr.Packet.Topic, pr.Packet.Payload)
		return true, nil
	})

	connectCtx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connectCtx); err != nil {
		c.log.Warn().Err(err).Msg("initial connection timed out, retrying in background")
	}

	c.startedAt = time.Now()
	go c.healthLoop()

	return nil
}

// onConnectionUp fires on every (re-)connection. It republishes
// registration and re-subscribes every topic that was registered before
// the disconnect, preserving the subscription list across reconnects.
func (c *Client) onConnectionUp(cm *autopaho.ConnectionManager) {
	c.setState(StateOnline)
	c.log.Info().Msg("connected to broker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.publishRegistration(ctx); err != nil {
		c.log.Error().Err(err).Msg("failed to publish registration")
	}

	c.subsMu.Lock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	c.subsMu.Unlock()

	for _, topic := range topics {
		if _, err := cm.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
		}); err != nil {
			c.log.Error().Err(err).Str("topic", topic).Msg("resubscribe failed")
		}
	}
}

func (c *Client) publishRegistration(ctx context.Context) error {
	payload := map[string]any{
		"service": c.cfg.ServiceName,
		"status":  string(types.ServiceStatusOnline),
	}
	return c.Publish(ctx, TopicDiscoveryRegister, payload, PublishOptions{
		Destination: "broadcast",
		MessageType: types.MessageTypeEvent,
	})
}

// Subscribe registers handler for topic at QoS 1. Delivery for this topic
// is drained in order by one goroutine reading a bounded channel, so a
// slow handler fills only this topic's queue (further envelopes for it
// are dropped while it is full), not the whole client.
func (c *Client) Subscribe(topic string, handler Handler) error {
	c.subsMu.Lock()
	sub, exists := c.subs[topic]
	if !exists {
		sub = &subscription{
			topic:   topic,
			handler: handler,
			queue:   make(chan *types.Envelope, c.cfg.QueueSize),
		}
		c.subs[topic] = sub
	} else {
		sub.handler = handler
	}
	c.subsMu.Unlock()

	sub.once.Do(func() {
		go c.drain(sub)
	})

	if c.cm == nil {
		return nil // registered; will be subscribed on connect
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
	})
	if err != nil {
		return errs.Wrap(errs.KindTransport, "subscribe", err)
	}
	return nil
}

func (c *Client) drain(sub *subscription) {
	for env := range sub.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		c.safeInvoke(ctx, sub.handler, env)
		cancel()
	}
}

func (c *Client) safeInvoke(ctx context.Context, handler Handler, env *types.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.errorCount.Add(1)
			c.log.Error().Interface("panic", r).Str("message_id", env.MessageID).Msg("handler panicked")
		}
	}()
	handler(ctx, env)
}

// dispatch decodes the raw payload, drops it per the TTL/hops/dedup
// invariants, and enqueues it on the topic's bounded channel.
func (c *Client) dispatch(topic string, payload []byte) {
	metrics.EnvelopesReceived.WithLabelValues(topic).Inc()

	env, err := DecodeEnvelope(payload)
	if err != nil {
		c.errorCount.Add(1)
		metrics.EnvelopesDropped.WithLabelValues("malformed").Inc()
		c.log.Warn().Err(err).Str("topic", topic).Msg("dropping malformed envelope")
		return
	}

	now := time.Now()
	if env.Expired(now) {
		metrics.EnvelopesDropped.WithLabelValues("expired").Inc()
		return
	}
	if env.ExceedsMaxHops() {
		metrics.EnvelopesDropped.WithLabelValues("max_hops").Inc()
		return
	}
	if c.dedup.seenRecently(env.MessageID, time.Duration(env.TTLSeconds)*time.Second) {
		metrics.EnvelopesDropped.WithLabelValues("duplicate").Inc()
		return
	}

	c.msgCount.Add(1)

	c.subsMu.Lock()
	sub, ok := c.subs[topic]
	if !ok {
		for filter, candidate := range c.subs {
			if topicMatches(filter, topic) {
				sub, ok = candidate, true
				break
			}
		}
	}
	c.subsMu.Unlock()
	if !ok {
		return
	}

	select {
	case sub.queue <- env:
	default:
		metrics.EnvelopesDropped.WithLabelValues("queue_full").Inc()
		c.log.Warn().Str("topic", topic).Msg("handler queue full, dropping envelope")
	}
}

// Publish wraps payload in a fresh envelope and sends it at QoS 1, or at
// QoS 0 for an event published on this service's own health topic.
func (c *Client) Publish(ctx context.Context, topic string, payload map[string]any, opts PublishOptions) error {
	if c.cm == nil {
		return errs.New(errs.KindTransport, "publish on disconnected client")
	}

	env := NewEnvelope(c.cfg.ServiceName, payload, opts)
	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}

	qos := byte(1)
	if opts.MessageType == types.MessageTypeEvent && topic == HealthTopic(c.cfg.ServiceName) {
		qos = 0
	}

	if _, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: data,
		QoS:     qos,
	}); err != nil {
		return errs.Wrap(errs.KindTransport, "publish", err)
	}
	metrics.EnvelopesPublished.WithLabelValues(topic).Inc()
	return nil
}

// healthLoop publishes a periodic heartbeat until Shutdown is called.
func (c *Client) healthLoop() {
	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.publishHealth()
		case <-c.healthStop:
			return
		}
	}
}

func (c *Client) publishHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := map[string]any{
		"service":     c.cfg.ServiceName,
		"status":      string(c.healthServiceStatus()),
		"uptime":      time.Since(c.startedAt).Seconds(),
		"message_count": c.msgCount.Load(),
		"error_count":   c.errorCount.Load(),
	}
	if err := c.Publish(ctx, HealthTopic(c.cfg.ServiceName), payload, PublishOptions{
		Destination: "broadcast",
		MessageType: types.MessageTypeEvent,
	}); err != nil {
		c.log.Warn().Err(err).Msg("publish health heartbeat failed")
	}
}

func (c *Client) healthServiceStatus() types.ServiceStatus {
	if c.State() == StateOnline {
		return types.ServiceStatusOnline
	}
	return types.ServiceStatusDegraded
}

// Shutdown publishes unregistration, stops health heartbeats, and closes
// the broker connection. Work not drained before ctx expires is abandoned.
func (c *Client) Shutdown(ctx context.Context) error {
	c.setState(StateShutdown)
	close(c.healthStop)
	c.dedup.stop()

	if c.cm != nil {
		payload := map[string]any{
			"service": c.cfg.ServiceName,
			"status":  string(types.ServiceStatusOffline),
		}
		_ = c.Publish(ctx, TopicDiscoveryUnregister, payload, PublishOptions{
			Destination: "broadcast",
			MessageType: types.MessageTypeEvent,
		})
		if err := c.cm.Disconnect(ctx); err != nil {
			return errs.Wrap(errs.KindTransport, "disconnect", err)
		}
	}
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// ServiceName returns the embedding service's name.
func (c *Client) ServiceName() string {
	return c.cfg.ServiceName
}

// Stats returns the runtime's message/error counters for health responses.
func (c *Client) Stats() (messageCount, errorCount int64, uptime time.Duration) {
	return c.msgCount.Load(), c.errorCount.Load(), time.Since(c.startedAt)
}

// topicMatches reports whether topic satisfies an MQTT subscription
// filter containing single-level ("+") or multi-level ("#") wildcards,
// so a subscription like "alicia/system/health/+" dispatches messages
// published to "alicia/system/health/tts".
func topicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}
