package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cardify/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
	calls  int
}

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	s.calls++
	return s.report, s.err
}

func TestSystemServiceHealthReportEnrichesMetadata(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Minute)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		},
	}

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            func() time.Time { return now },
		Build:            BuildInfo{Version: "1.2.3", CommitSHA: "abc123", Environment: "prod", StartedAt: start},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if report.Version != "1.2.3" || report.CommitSHA != "abc123" || report.Environment != "prod" {
		t.Fatalf("unexpected build metadata %+v", report)
	}
	if report.Uptime != 5*time.Minute {
		t.Fatalf("expected uptime 5m, got %s", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestSystemServiceHealthReportErrors(t *testing.T) {
	expected := errors.New("collect failed")
	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: &stubHealthRepository{err: expected}})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	if _, err := svc.HealthReport(context.Background()); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
	if _, _, err := svc.Ready(context.Background()); !errors.Is(err, expected) {
		t.Fatalf("expected ready error %v, got %v", expected, err)
	}
}

func TestSystemServiceReadyFollowsStatus(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]domain.SystemHealthCheck
		status string
		ready  bool
	}{
		{name: "all ok", checks: map[string]domain.SystemHealthCheck{"firestore": {Status: domain.HealthStatusOK}}, status: domain.HealthStatusOK, ready: true},
		{name: "degraded", checks: map[string]domain.SystemHealthCheck{"redis": {Status: domain.HealthStatusDegraded}}, status: domain.HealthStatusDegraded, ready: true},
		{name: "critical", checks: map[string]domain.SystemHealthCheck{
			"redis":     {Status: domain.HealthStatusDegraded},
			"firestore": {Status: domain.HealthStatusError},
		}, status: domain.HealthStatusError, ready: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewSystemService(SystemServiceDeps{HealthRepository: &stubHealthRepository{report: domain.SystemHealthReport{Checks: tc.checks}}})
			if err != nil {
				t.Fatalf("NewSystemService: %v", err)
			}
			report, ready, err := svc.Ready(context.Background())
			if err != nil {
				t.Fatalf("Ready: %v", err)
			}
			if report.Status != tc.status || ready != tc.ready {
				t.Fatalf("expected %s/%v, got %s/%v", tc.status, tc.ready, report.Status, ready)
			}
		})
	}
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error without repository")
	}
}
