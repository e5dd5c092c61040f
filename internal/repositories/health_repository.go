package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/cardify/api/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// Probe names one readiness dependency and how to check it.
type Probe struct {
	Name    string
	Timeout time.Duration
	// Critical probes turn the report to error instead of degraded.
	Critical bool
	Check    func(context.Context) error
}

// HealthOption customises a ProbeHealthRepository.
type HealthOption func(*ProbeHealthRepository)

// WithProbeTimeout sets the timeout for probes that do not carry their own.
func WithProbeTimeout(timeout time.Duration) HealthOption {
	return func(r *ProbeHealthRepository) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithHealthClock injects the clock.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(r *ProbeHealthRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// ProbeHealthRepository runs its probes concurrently on every Collect.
type ProbeHealthRepository struct {
	probes  []Probe
	timeout time.Duration
	now     func() time.Time
}

var _ HealthRepository = (*ProbeHealthRepository)(nil)

// NewProbeHealthRepository validates the probe set.
func NewProbeHealthRepository(probes []Probe, opts ...HealthOption) (*ProbeHealthRepository, error) {
	if len(probes) == 0 {
		return nil, errors.New("health repository: at least one probe is required")
	}
	for _, p := range probes {
		if strings.TrimSpace(p.Name) == "" || p.Check == nil {
			return nil, errors.New("health repository: probes need a name and a check")
		}
	}
	r := &ProbeHealthRepository{
		probes:  append([]Probe(nil), probes...),
		timeout: defaultProbeTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Collect runs every probe and folds the results into one report.
func (r *ProbeHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	results := make(map[string]domain.SystemHealthCheck, len(r.probes))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, probe := range r.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			check := r.run(ctx, p)
			mu.Lock()
			results[p.Name] = check
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, p := range r.probes {
		switch results[p.Name].Status {
		case domain.HealthStatusError:
			status = domain.HealthStatusError
		case domain.HealthStatusDegraded:
			if status == domain.HealthStatusOK {
				status = domain.HealthStatusDegraded
			}
		}
	}
	return domain.SystemHealthReport{Status: status, Checks: results, GeneratedAt: r.now()}, nil
}

func (r *ProbeHealthRepository) run(ctx context.Context, p Probe) domain.SystemHealthCheck {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	err := p.Check(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	end := r.now()

	check := domain.SystemHealthCheck{Status: domain.HealthStatusOK, Detail: "ok", Latency: end.Sub(start), CheckedAt: end}
	if err == nil {
		return check
	}
	check.Error = err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		check.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		check.Detail = "cancelled"
	default:
		check.Detail = err.Error()
	}
	check.Status = domain.HealthStatusDegraded
	if p.Critical || errors.Is(err, context.DeadlineExceeded) {
		check.Status = domain.HealthStatusError
	}
	return check
}
