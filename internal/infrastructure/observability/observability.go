package observability

import (
	"fmt"
	"io"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/infrastructure/config"
	prometheusAdapter "massdownloader/internal/infrastructure/observability/adapters/prometheus"
	zerologAdapter "massdownloader/internal/infrastructure/observability/adapters/zerolog"
)

type observability struct {
	config  *config.Config
	runID   string
	logger  ports.Logger
	metrics ports.Metrics
	export  *prometheusAdapter.Metrics
}

// Observability is the port plus the end-of-run metrics export
type Observability interface {
	ports.Observability
	Flush() error
}

// CreateObservability builds the logger and metrics selected in cfg. Logs
// go to out; every scoped component carries runID.
func CreateObservability(cfg *config.Config, runID string, out io.Writer) (Observability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	obs := &observability{
		config: cfg,
		runID:  runID,
	}
	if err := obs.createComponents(out); err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}
	return obs, nil
}

func (obs *observability) createComponents(out io.Writer) error {
	switch obs.config.Adapters.Logger {
	case "zerolog":
		logger, err := zerologAdapter.NewLogger(out, obs.config.LogLevel, obs.config.Observability.LogFormat)
		if err != nil {
			return err
		}
		obs.logger = logger
	default:
		return fmt.Errorf("unsupported logger adapter: %s", obs.config.Adapters.Logger)
	}

	switch obs.config.Adapters.Metrics {
	case "prometheus":
		metrics := prometheusAdapter.NewMetrics(obs.config.ServiceName)
		obs.metrics = metrics
		obs.export = metrics
	default:
		return fmt.Errorf("unsupported metrics adapter: %s", obs.config.Adapters.Metrics)
	}

	return nil
}

// ComponentsScoped returns logger and metrics scoped to a specific component
func (obs *observability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.getScopedLogger(component), obs.getScopedMetrics(component), nil
}

// LoggerScoped returns a logger scoped to a specific component
func (obs *observability) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.getScopedLogger(component), nil
}

// Flush writes the metrics file when one is configured
func (obs *observability) Flush() error {
	path := obs.config.Observability.MetricsFile
	if path == "" || obs.export == nil {
		return nil
	}
	return obs.export.WriteToFile(path)
}

// getScopedLogger creates a logger with component and service context
func (obs *observability) getScopedLogger(component string) ports.Logger {
	return obs.logger.WithFields(map[string]interface{}{
		"service":   obs.config.ServiceName,
		"version":   obs.config.Version,
		"env":       obs.config.Environment,
		"run_id":    obs.runID,
		"component": component,
	})
}

// getScopedMetrics creates metrics with component and service tags. The run
// id is left out of the labels to keep their cardinality bounded.
func (obs *observability) getScopedMetrics(component string) ports.Metrics {
	return obs.metrics.WithTags(map[string]string{
		"service":   obs.config.ServiceName,
		"env":       obs.config.Environment,
		"component": component,
	})
}
