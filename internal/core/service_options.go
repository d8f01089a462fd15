package core

import (
	"context"
	"time"

	"flowdeck/pkg/domain"
)

// Logger receives structured key/value events from the service. The default
// implementation discards everything.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface. A nil function
// falls back to the system clock. Returned times are normalized to UTC.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// AuditStatus labels an audit entry outcome.
type AuditStatus string

const (
	// AuditStatusSuccess marks a completed operation.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks a failed operation.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry records one service operation for compliance trails.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Duration  time.Duration
	Timestamp time.Time
	Error     string
}

// AuditRecorder receives audit entries. Implementations must be safe for
// concurrent use.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation outcomes for aggregation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan terminates a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger installs a logger for operation events.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source used for audit entries.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAuditRecorder installs an audit sink for mutating operations.
func WithAuditRecorder(r AuditRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder installs a metrics sink for operation outcomes.
func WithMetricsRecorder(r MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer installs a tracer wrapping every operation in a span.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// selectNowFunc picks the timestamp source for audit entries: a store-provided
// clock wins, then the configured Clock, then the system clock.
func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	type nowProvider interface {
		NowFunc() func() time.Time
	}
	if p, ok := store.(nowProvider); ok {
		if fn := p.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return func() time.Time { return time.Now().UTC() }
}

// extractRulesEngine returns the rules engine backing the store when the
// implementation exposes one, nil otherwise.
func extractRulesEngine(store PersistentStore) *domain.RulesEngine {
	type engineProvider interface {
		RulesEngine() *domain.RulesEngine
	}
	if p, ok := store.(engineProvider); ok {
		return p.RulesEngine()
	}
	return nil
}
