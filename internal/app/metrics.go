package app

import (
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
)

// NewMetrics builds the collector and the metric set for a binary. With
// metrics disabled both are no-ops and the collector serves 404.
func NewMetrics(cfg config.MetricsConfig, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.QBankMetrics, error) {
	if !cfg.Enabled {
		return prometheus.NewNopCollector(), prometheus.NewNopMetrics(), nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewQBankMetrics(collector), nil
}

//Personal.AI order the ending
