package observe

import (
	"context"
	"errors"
	"testing"
)

// TestConfig_Validate covers valid and invalid configurations.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal valid",
			cfg:  Config{ServiceName: "toolcache"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid tracing",
			cfg: Config{
				ServiceName: "toolcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 0.5},
			},
		},
		{
			name: "invalid tracing exporter",
			cfg: Config{
				ServiceName: "toolcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "toolcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "invalid exporter ignored when tracing disabled",
			cfg: Config{
				ServiceName: "toolcache",
				Tracing:     TracingConfig{Enabled: false, Exporter: "zipkin"},
			},
		},
		{
			name: "invalid metrics exporter",
			cfg: Config{
				ServiceName: "toolcache",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "invalid log level",
			cfg: Config{
				ServiceName: "toolcache",
				Logging:     LoggingConfig{Enabled: true, Level: "verbose"},
			},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewObserver_AllDisabled verifies disabled subsystems produce usable
// noop primitives.
func TestNewObserver_AllDisabled(t *testing.T) {
	ctx := context.Background()

	obs, err := NewObserver(ctx, Config{ServiceName: "toolcache"})
	if err != nil {
		t.Fatalf("NewObserver error: %v", err)
	}

	if obs.Tracer() == nil {
		t.Error("Tracer() returned nil")
	}
	if obs.Meter() == nil {
		t.Error("Meter() returned nil")
	}
	if obs.Logger() == nil {
		t.Error("Logger() returned nil")
	}

	// Noop primitives must be callable.
	_, span := obs.Tracer().Start(ctx, "test")
	span.End()
	obs.Logger().Info(ctx, "discarded")

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown with nothing running = %v, want nil", err)
	}
}

// TestNewObserver_InvalidConfig verifies config validation runs first.
func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver(empty) = %v, want ErrMissingServiceName", err)
	}
}

// TestNewObserver_NoneExporters verifies the "none" exporters stand up real
// providers without any export pipeline.
func TestNewObserver_NoneExporters(t *testing.T) {
	ctx := context.Background()

	obs, err := NewObserver(ctx, Config{
		ServiceName: "toolcache",
		Version:     "0.1.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver error: %v", err)
	}

	_, span := obs.Tracer().Start(ctx, "test")
	span.End()

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown = %v, want nil", err)
	}
}
