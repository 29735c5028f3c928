//go:build !tinygo

package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the sensor gateway link.
const DefaultBaudRate = 115200

var _ Source = (*Serial)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads sensor readings from a gateway streaming one reading per line:
//
//	id,unix_seconds,age_a_min,age_b_min,pm25_a,pm25_b,temp_f,humidity,pressure[,avg10m,avg30m,avg1h,avg6h,avg24h,avg1w]
type Serial struct {
	port     string
	baudRate int
	log      *slog.Logger

	conn      serial.Port
	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	closed    bool
}

// NewSerial creates a serial source for the given port.
func NewSerial(port string, baudRate int, bufSize int, log *slog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		log:      log.With("port", port),
		readings: make(chan Reading, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return ErrAlreadyConnected
	}
	if s.closed {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.readings = make(chan Reading, cap(s.readings))
		s.closed = false
	}

	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true

	go s.readLines(s.ctx, port, s.readings)

	return nil
}

// Close closes the port and the readings channel.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("error closing serial port", "err", err)
		}
		s.conn = nil
	}

	s.connected = false
	s.closed = true
	close(s.readings)

	return nil
}

// Readings returns the channel of parsed readings. A reconnect replaces the
// channel closed by Close.
func (s *Serial) Readings() <-chan Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readings
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Serial) readLines(ctx context.Context, conn io.Reader, readings chan<- Reading) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in serial reader", "panic", r)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && err != io.EOF {
				s.log.Error("error reading from serial port", "err", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reading, err := ParseLine(line)
		if err != nil {
			s.log.Warn("failed to parse line", "line", line, "err", err)
			continue
		}

		s.mu.RLock()
		if !s.connected || ctx.Err() != nil {
			s.mu.RUnlock()
			return
		}
		select {
		case readings <- reading:
		default:
			s.log.Warn("readings channel full, dropping reading", "sensor", reading.ID)
		}
		s.mu.RUnlock()
	}
}
