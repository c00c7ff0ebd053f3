package services

import (
	"context"
	"sync"

	"github.com/epeers/reconcile/internal/models"
)

type warningContextKey struct{}

// WarningCollector accumulates data-quality warnings during a service call
// chain. Every anomaly is recoverable: results stay best-effort and the
// warnings travel alongside them.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []models.Warning
}

// NewWarningContext returns a context carrying a fresh WarningCollector,
// plus a reference to the collector so the handler can retrieve warnings later.
func NewWarningContext(ctx context.Context) (context.Context, *WarningCollector) {
	wc := &WarningCollector{}
	return context.WithValue(ctx, warningContextKey{}, wc), wc
}

// AddWarning appends a warning to the collector in ctx.
// If ctx has no collector, the call is a no-op.
func AddWarning(ctx context.Context, w models.Warning) {
	wc, ok := ctx.Value(warningContextKey{}).(*WarningCollector)
	if !ok || wc == nil {
		return
	}
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.warnings = append(wc.warnings, w)
}

// GetWarnings returns all collected warnings.
func (wc *WarningCollector) GetWarnings() []models.Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.warnings
}

// Messages returns the warning messages as plain strings for report fields.
func (wc *WarningCollector) Messages() []string {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	msgs := make([]string, 0, len(wc.warnings))
	for _, w := range wc.warnings {
		msgs = append(msgs, w.Message)
	}
	return msgs
}
