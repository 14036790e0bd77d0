package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetstream/fleetbridge/internal/infrastructure/mqtt"
	"github.com/fleetstream/fleetbridge/internal/telemetry"
)

// stopTimeout bounds how long Stop waits for sessions to drain.
const stopTimeout = 5 * time.Second

// VehicleSpec names one vehicle to stream.
type VehicleSpec struct {
	VIN string
	Car int
}

// BridgeOptions configures a new bridge.
type BridgeOptions struct {
	// URI is the upstream streaming endpoint.
	URI string

	// Token authenticates the subscription requests.
	Token string

	// SubscribeTimeout is how long a session waits for subscription
	// confirmation before tearing the cycle down.
	SubscribeTimeout time.Duration

	// Reconnect backoff parameters shared by all sessions. Each session
	// still gets its own policy instance.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64

	// Vehicles is the fleet to stream.
	Vehicles []VehicleSpec

	// Dialer opens upstream connections.
	Dialer StreamDialer

	// Publisher delivers normalized values to the broker.
	Publisher Publisher

	// Topics builds per-vehicle topic paths.
	Topics mqtt.Topics

	// QoS applies to every publish.
	QoS byte

	// Converter normalizes raw field values.
	Converter *telemetry.Converter

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge supervises one session per vehicle.
type Bridge struct {
	sessions []*Session
	logger   Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewBridge creates a new bridge instance.
// Call Start() to begin streaming.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if opts.Converter == nil {
		return nil, fmt.Errorf("converter is required")
	}
	if len(opts.Vehicles) == 0 {
		return nil, fmt.Errorf("at least one vehicle is required")
	}

	b := &Bridge{logger: opts.Logger}

	for _, v := range opts.Vehicles {
		b.sessions = append(b.sessions, NewSession(SessionConfig{
			VIN:              v.VIN,
			Car:              v.Car,
			URI:              opts.URI,
			Token:            opts.Token,
			SubscribeTimeout: opts.SubscribeTimeout,
			Dialer:           opts.Dialer,
			Publisher:        opts.Publisher,
			Topics:           opts.Topics,
			QoS:              opts.QoS,
			Converter:        opts.Converter,
			Policy:           NewReconnectPolicy(opts.BaseDelay, opts.MaxDelay, opts.Jitter),
			Logger:           opts.Logger,
		}))
	}

	return b, nil
}

// Start launches one streaming goroutine per vehicle. Sessions run until
// the given context is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	for _, s := range b.sessions {
		b.wg.Add(1)
		go func(s *Session) {
			defer b.wg.Done()
			s.Run(ctx)
		}(s)
	}

	b.logInfo("bridge started", "vehicles", len(b.sessions))
	return nil
}

// Stop cancels all sessions and waits a bounded time for them to finish
// their final state publishes.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			b.logInfo("bridge stopped")
		case <-time.After(stopTimeout):
			b.logWarn("bridge stop timed out", "timeout", stopTimeout)
		}
	})
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
