package controller

import (
	"context"

	"go.uber.org/zap"
)

// CheckHealth probes /health and records the outcome for the status bar.
func (c *Controller) CheckHealth(ctx context.Context) BackendStatus {
	res, err := c.api.Health(ctx)
	status := BackendStatus{Checked: true, Reachable: err == nil, Health: res}
	if err != nil {
		c.logger.Warn("health probe failed", zap.Error(err))
	} else {
		c.logger.Debug("health probe", zap.String("status", res.Status), zap.Bool("model", res.Model))
	}
	c.mu.Lock()
	c.backend = status
	c.mu.Unlock()
	c.notify(false)
	return status
}
