package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/goaqim/pkg/config"
)

// Mock simulates a set of sensors for testing and development.
type Mock struct {
	cfg *config.MockConfig

	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	closed    bool

	// Simulation state
	startTime time.Time
	next      int
}

// NewMock creates a new simulated source.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Enabled:    true,
			Sensors:    3,
			BasePM25:   12,
			NoiseLevel: 0.5,
			SampleRate: 100 * time.Millisecond,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      cfg,
		readings: make(chan Reading, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect starts generating readings.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.closed {
		m.ctx, m.cancel = context.WithCancel(context.Background())
		m.readings = make(chan Reading, cap(m.readings))
		m.closed = false
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateReadings(m.ctx, m.readings)

	return nil
}

// Close stops the simulation and closes the readings channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	m.closed = true
	close(m.readings)

	return nil
}

// Readings returns the channel of simulated readings. A reconnect replaces
// the channel closed by Close.
func (m *Mock) Readings() <-chan Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readings
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateReadings(ctx context.Context, readings chan<- Reading) {
	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r := m.generateReading(now)

			m.mu.RLock()
			if m.connected && ctx.Err() == nil {
				select {
				case readings <- r:
				default:
					// Channel full, skip
				}
			}
			m.mu.RUnlock()
		}
	}
}

// generateReading produces the next reading, cycling through the simulated
// sensors. Both channels follow a slow oscillation around the base level and
// disagree by at most the noise level.
func (m *Mock) generateReading(now time.Time) Reading {
	sensors := max(1, min(m.cfg.Sensors, MaxSensors))

	m.mu.Lock()
	idx := m.next
	m.next = (m.next + 1) % sensors
	elapsed := float32(now.Sub(m.startTime).Seconds())
	m.mu.Unlock()

	phase := elapsed/60 + float32(idx)
	pm := m.cfg.BasePM25 * (1 + 0.25*math32.Sin(phase))
	noise := m.cfg.NoiseLevel * math32.Cos(phase*7)

	r := Reading{
		ID:           uint32(idx + 1),
		Timestamp:    now.Truncate(time.Second),
		PM25A:        max(0, pm+noise/2),
		PM25B:        max(0, pm-noise/2),
		TemperatureF: 72 + int16(idx),
		Humidity:     40,
		Pressure:     1013.25,
	}
	for i := range r.Averages {
		r.Averages[i] = m.cfg.BasePM25
	}
	return r
}
