// Package health aggregates component liveness into a single report. The
// service itself is always reachable while the process runs; the report
// only annotates which dependencies are degraded.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates the service is up and serving.
	Healthy Status = "healthy"
	// Degraded indicates the service is up but a dependency is failing.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	index     IndexCounter
}

// New creates a Service. embedding and index can be nil.
func New(db DBPinger, embedding EmbeddingChecker, index IndexCounter) *Service {
	return &Service{db: db, embedding: embedding, index: index}
}

// Check runs health checks against all wired components. An empty index is
// reported but does not degrade the status; queries against it fail with
// their own error.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.index != nil {
		if s.index.Len() == 0 {
			checks["index"] = CheckEmpty
		} else {
			checks["index"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
