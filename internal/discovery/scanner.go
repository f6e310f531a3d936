// internal/discovery/scanner.go

// Package discovery locates serial ports with a pointing device attached by
// enumerating candidate ports and probing each one. Probing is
// non-committal: every port is left exactly as it was found.
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"mouse-service/internal/driver/msmouse"
	"mouse-service/internal/sink"
	"mouse-service/internal/transport"
	"mouse-service/internal/utils"
)

// Scanner probes serial ports for pointing devices
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for the serial scanner
type Config struct {
	PortPatterns []string      `json:"port_patterns"`
	ProbeTimeout time.Duration `json:"probe_timeout"`
}

// NewScanner creates a new scanner. A nil config selects platform defaults.
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if len(config.PortPatterns) == 0 {
		config.PortPatterns = defaultPortPatterns()
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 2 * time.Second
	}

	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		config: config,
	}
}

// Scan enumerates serial ports, probes every one matching the configured
// patterns, and returns the names of ports where a mouse answered.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	if len(ports) == 0 {
		s.logger.Info("No serial ports found")
		return nil, nil
	}

	var matched []string
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return matched, ctx.Err()
		default:
		}

		if !s.matchPort(port.Name) {
			continue
		}

		s.logger.Debug("Probing port",
			zap.String("port", port.Name),
			zap.Bool("usb", port.IsUSB),
		)

		if s.probePort(ctx, port.Name) {
			s.logger.Info("Pointing device found", zap.String("port", port.Name))
			matched = append(matched, port.Name)
		}
	}

	s.logger.Info("Serial scan completed", zap.Int("devices_found", len(matched)))
	return matched, nil
}

// probePort runs one non-committal probe against a port.
func (s *Scanner) probePort(ctx context.Context, name string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.config.ProbeTimeout)
	defer cancel()

	logger := utils.NewDriverLogger(s.logger, name)
	t := transport.NewSerialTransport(name, s.logger)
	drv := msmouse.New(t, sink.Discard, logger.Logger)

	start := time.Now()
	matched, err := drv.Probe(probeCtx)
	if err != nil {
		s.logger.Debug("Probe error", zap.String("port", name), zap.Error(err))
		return false
	}
	logger.LogProbe(matched, time.Since(start))
	return matched
}

// matchPort checks a port name against the configured patterns.
func (s *Scanner) matchPort(name string) bool {
	for _, pattern := range s.config.PortPatterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// defaultPortPatterns returns the platform's usual serial device names.
func defaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/cu.*"}
	default:
		return []string{"/dev/ttyS*", "/dev/ttyUSB*", "/dev/ttyAMA*"}
	}
}
