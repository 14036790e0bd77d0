package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleetstream/fleetbridge/internal/infrastructure/mqtt"
	"github.com/fleetstream/fleetbridge/internal/telemetry"
)

// Connectivity states published to the vehicle state topic.
const (
	stateOnline       = "online"
	stateDisconnected = "disconnected"
	stateError        = "error"
)

// Publisher is the broker-side surface a session needs.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the subset of logging.Logger the bridge uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionConfig carries everything one vehicle session needs.
type SessionConfig struct {
	VIN              string
	Car              int
	URI              string
	Token            string
	SubscribeTimeout time.Duration

	Dialer    StreamDialer
	Publisher Publisher
	Topics    mqtt.Topics
	QoS       byte
	Converter *telemetry.Converter
	Policy    *ReconnectPolicy
	Logger    Logger
}

// Session owns the stream lifecycle for a single vehicle: connect,
// subscribe, stream, back off, repeat. Each session runs in its own
// goroutine; nothing here is shared with other sessions except the
// publisher and converter, which are concurrency-safe.
type Session struct {
	vin              string
	car              int
	uri              string
	token            string
	subscribeTimeout time.Duration

	dialer    StreamDialer
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	converter *telemetry.Converter
	policy    *ReconnectPolicy
	logger    Logger

	// lastState suppresses redundant retained state publishes.
	lastState string
}

// NewSession creates a session for one vehicle.
func NewSession(cfg SessionConfig) *Session {
	policy := cfg.Policy
	if policy == nil {
		policy = NewReconnectPolicy(defaultBaseDelay, defaultMaxDelay, defaultJitter)
	}
	return &Session{
		vin:              cfg.VIN,
		car:              cfg.Car,
		uri:              cfg.URI,
		token:            cfg.Token,
		subscribeTimeout: cfg.SubscribeTimeout,
		dialer:           cfg.Dialer,
		publisher:        cfg.Publisher,
		topics:           cfg.Topics,
		qos:              cfg.QoS,
		converter:        cfg.Converter,
		policy:           policy,
		logger:           cfg.Logger,
	}
}

// Run drives the session until ctx is cancelled. Every cycle end short
// of cancellation goes through the reconnect policy, including clean
// upstream closes and vehicle-offline responses; only a confirmed
// subscription resets the backoff.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.cycle(ctx)

		if ctx.Err() != nil {
			s.publishState(stateDisconnected)
			s.logInfo("session cancelled")
			return ctx.Err()
		}
		if err != nil {
			s.logWarn("session cycle ended", "error", err)
		}

		delay := s.policy.NextDelay()
		s.logInfo("reconnecting",
			"delay", delay.Round(100*time.Millisecond),
			"attempt", s.policy.Attempts(),
		)

		select {
		case <-ctx.Done():
			s.publishState(stateDisconnected)
			s.logInfo("session cancelled")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// cycle performs one connect-subscribe-stream pass.
func (s *Session) cycle(ctx context.Context) error {
	s.logInfo("connecting", "uri", s.uri)

	conn, err := s.dialer.Dial(ctx, s.uri)
	if err != nil {
		s.publishState(stateError)
		return err
	}
	defer conn.Close()

	// Unblock Receive when the context is cancelled.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	first, err := s.subscribe(conn)
	if err != nil {
		s.publishState(stateError)
		return err
	}

	s.policy.Reset()
	s.publishState(stateOnline)

	// The confirmation frame is an ordinary stream frame; an immediate
	// error or data frame must not be dropped.
	if stop := s.handleFrame(first); stop {
		return nil
	}

	return s.stream(ctx, conn)
}

// subscribe sends the subscription request and waits for the upstream's
// confirmation frame.
func (s *Session) subscribe(conn StreamConn) ([]byte, error) {
	req := subscribeRequest{
		MsgType: msgTypeSubscribeAll,
		Tag:     s.vin,
		Token:   s.token,
	}

	s.logInfo("subscribing", "vin", s.vin)
	if err := conn.Send(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	raw, err := conn.ReceiveTimeout(s.subscribeTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return raw, nil
}

// stream consumes frames until the connection fails or the upstream
// declares the vehicle unavailable.
func (s *Session) stream(ctx context.Context, conn StreamConn) error {
	for {
		raw, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.publishState(stateDisconnected)
			return err
		}

		if stop := s.handleFrame(raw); stop {
			return nil
		}
	}
}

// handleFrame processes one inbound frame. It returns true when the
// session should end its cycle (vehicle reported unavailable).
func (s *Session) handleFrame(raw []byte) bool {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logWarn("invalid frame", "error", err)
		return false
	}

	s.logDebug("frame received", "frame", sanitizeFrame(raw))

	if msg.Error != nil {
		switch msg.Error.Type {
		case errVehicleDisconnected, errVehicleOffline:
			s.logWarn("vehicle unavailable",
				"vin", s.vin,
				"state", msg.Error.Type,
				"detail", msg.Error.Message,
			)
			s.publishState(msg.Error.Type)
			return true
		default:
			s.logError("upstream error",
				"type", msg.Error.Type,
				"detail", msg.Error.Message,
			)
			return false
		}
	}

	if strings.HasPrefix(msg.MsgType, msgTypeHelloPrefix) {
		s.publishState(stateOnline)
		return false
	}

	if msg.Data != nil {
		s.publishState(stateOnline)
		s.publishFields(msg.Data)
		if msg.VIN != "" {
			s.publish(s.topics.VehicleVIN(s.car), msg.VIN)
		}
	}

	return false
}

// publishFields converts and publishes each field of a data frame.
// A field that fails conversion is skipped; the rest of the frame still
// publishes.
func (s *Session) publishFields(entries []fieldEntry) {
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) == "" {
			s.logDebug("empty field key skipped")
			continue
		}

		nv := s.converter.Convert(entry.Key, entry.Value)
		if nv.Formatted == "" {
			continue
		}

		s.publish(s.topics.VehicleField(s.car, nv.Topic), nv.Formatted)
	}
}

// publishState publishes the vehicle's connectivity state. The topic is
// retained, so repeats of the current state are suppressed.
func (s *Session) publishState(state string) {
	if state == s.lastState {
		return
	}
	s.lastState = state
	s.publish(s.topics.VehicleState(s.car), state)
}

// publish sends one retained payload, logging failures rather than
// aborting the frame.
func (s *Session) publish(topic, payload string) {
	if err := s.publisher.Publish(topic, []byte(payload), s.qos, true); err != nil {
		s.logError("publish failed", "topic", topic, "error", err)
	}
}

// Log helpers tolerate a nil logger so tests can omit one.

func (s *Session) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, s.logArgs(args)...)
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, s.logArgs(args)...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, s.logArgs(args)...)
	}
}

func (s *Session) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, s.logArgs(args)...)
	}
}

// logArgs prefixes every session log entry with the car number.
func (s *Session) logArgs(args []any) []any {
	return append([]any{"car", s.car}, args...)
}
