package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Component names used as keys of Report.Checks.
const (
	CheckWorker = "worker"
	CheckCache  = "cache"
)

// Service coordinates health checks.
type Service struct {
	worker WorkerPinger
	cache  CachePinger
}

// New creates a Service. cache can be nil when the response cache is disabled.
func New(worker WorkerPinger, cache CachePinger) *Service {
	return &Service{worker: worker, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckWorker] = result(s.worker.Ping(ctx))
	if s.cache != nil {
		checks[CheckCache] = result(s.cache.Ping(ctx))
	}

	// A cache failure degrades, a worker failure is fatal.
	status := Healthy
	switch {
	case checks[CheckWorker] == CheckError:
		status = Unhealthy
	case checks[CheckCache] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
