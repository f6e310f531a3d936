// cmd/mousesvc/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mouse-service/internal/config"
	"mouse-service/internal/discovery"
	"mouse-service/internal/driver/msmouse"
	"mouse-service/internal/sink"
	"mouse-service/internal/transport"
	"mouse-service/internal/utils"
)

// Application wires the driver service together
type Application struct {
	config *config.Config
	logger *zap.Logger
	driver *msmouse.Driver
}

func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.logger.Fatal("Service failed", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Service starting",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	return &Application{
		config: cfg,
		logger: logger,
	}, nil
}

// Run attaches the driver and blocks until the process is signalled
func (app *Application) Run() error {
	defer utils.CloseLogger(app.logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, err := app.selectPort(ctx)
	if err != nil {
		return err
	}

	logger := utils.NewDriverLogger(app.logger, port)
	t := transport.NewSerialTransport(port, app.logger)
	app.driver = msmouse.New(t, sink.NewLogSink(app.logger), logger.Logger)

	start := time.Now()
	err = app.driver.Start(ctx)
	logger.LogAttach(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("start driver on %s: %w", port, err)
	}

	<-ctx.Done()
	app.logger.Info("Service stopping", zap.String("reason", "signal"))

	if err := app.driver.Stop(); err != nil {
		return fmt.Errorf("stop driver: %w", err)
	}
	return nil
}

// selectPort returns the configured port, or scans for one when the
// configuration does not pin a device.
func (app *Application) selectPort(ctx context.Context) (string, error) {
	if app.config.Serial.Port != "" {
		return app.config.Serial.Port, nil
	}

	scanner := discovery.NewScanner(app.logger, &discovery.Config{
		PortPatterns: app.config.Serial.PortPatterns,
		ProbeTimeout: app.config.Serial.ProbeTimeout,
	})

	ports, err := scanner.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("scan serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no pointing device found on any serial port")
	}
	if len(ports) > 1 {
		app.logger.Warn("Multiple pointing devices found, using the first",
			zap.Strings("ports", ports),
		)
	}
	return ports[0], nil
}
