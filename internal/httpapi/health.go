package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
)

// HealthCheck is one dependency probed by /healthz. Optional checks degrade
// the report instead of failing it.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Optional bool
}

func newHealth(version string, checks []HealthCheck) (*health.Health, error) {
	if version == "" {
		version = "dev"
	}
	configs := make([]health.Config, 0, len(checks))
	for _, c := range checks {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		configs = append(configs, health.Config{
			Name:      c.Name,
			Timeout:   timeout,
			SkipOnErr: c.Optional,
			Check:     c.Check,
		})
	}
	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "hamza-trader-gateway",
			Version: version,
		}),
		health.WithChecks(configs...),
	)
	if err != nil {
		return nil, fmt.Errorf("create health checks: %w", err)
	}
	return h, nil
}
