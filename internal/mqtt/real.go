package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	// bufferCapacity bounds messages kept while the broker is unreachable.
	bufferCapacity = 256
	// commandQueue bounds commands not yet consumed by the run loop.
	commandQueue = 16

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher talks to an actual MQTT broker. It publishes telemetry,
// buffers it while disconnected and delivers commands from TopicCommands.
type RealPublisher struct {
	client   paho.Client
	outbox   *outbox
	commands chan Command
	log      *zap.Logger
}

type pahoSender struct {
	client paho.Client
}

func (s pahoSender) connected() bool {
	return s.client.IsConnectionOpen()
}

func (s pahoSender) send(msg bufferedMsg) error {
	token := s.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	return token.Error()
}

// NewRealPublisher connects to broker. An unreachable broker is not an
// error: paho keeps retrying in the background and telemetry is buffered.
// will is published by the broker if the connection drops.
func NewRealPublisher(broker, clientID string, will SystemEvent, log *zap.Logger) (*RealPublisher, error) {
	log = log.Named("mqtt")
	willPayload, err := FormatSystemPayload(will)
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := &RealPublisher{
		commands: make(chan Command, commandQueue),
		log:      log,
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(willPayload), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	p.outbox = newOutbox(pahoSender{client: p.client}, bufferCapacity, log)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn("broker unreachable, retrying in background", zap.String("broker", broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info("connected")
	token := c.Subscribe(TopicCommands, 1, func(_ paho.Client, msg paho.Message) {
		p.deliver(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		p.log.Error("subscribe failed", zap.String("topic", TopicCommands), zap.Error(token.Error()))
	}
	// Replay off the callback goroutine; paho blocks publishes from here.
	go p.outbox.flush()
}

// deliver parses and queues a command, dropping it when the queue is full.
func (p *RealPublisher) deliver(topic string, payload []byte) {
	cmd, err := ParseCommand(topic, payload)
	if err != nil {
		p.log.Warn("ignoring command", zap.String("topic", topic), zap.Error(err))
		return
	}
	select {
	case p.commands <- cmd:
	default:
		p.log.Warn("command queue full, dropping", zap.String("topic", topic))
	}
}

// PublishState sends the retained climate state. While offline only the
// latest state is kept for replay.
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	if err := p.outbox.publish(bufferedMsg{topic: TopicState, payload: payload, retained: true}, true); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event with QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.outbox.publish(msg, false); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Commands returns the channel of parsed operator commands.
func (p *RealPublisher) Commands() <-chan Command {
	return p.commands
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
