package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthProbe checks one dependency the API cannot serve without.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseProbe pings the plot and risk store.
type DatabaseProbe struct {
	DB Pinger
}

func (p DatabaseProbe) Name() string { return "database" }

func (p DatabaseProbe) Check(ctx context.Context) error {
	if p.DB == nil {
		return errors.New("database not configured")
	}
	return p.DB.Ping(ctx)
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth serves GET /health: 200 when every probe passes, 503 when any
// fails, panics or is still running at the deadline.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: statusHealthy}
	if s.Config != nil {
		resp.Version = s.Config.Build.Version
	}
	if len(s.HealthProbes) > 0 {
		resp.Components = runProbes(ctx, s.HealthProbes)
		for _, c := range resp.Components {
			if c.Status != statusHealthy {
				resp.Status = statusUnhealthy
			}
		}
	}

	code := http.StatusOK
	if resp.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	JSON(w, r, code, resp)
}

// runProbes checks every probe in its own goroutine and collects whatever
// has finished when ctx expires. Late probes keep running in the background
// and their results are dropped.
func runProbes(ctx context.Context, probes []HealthProbe) map[string]componentStatus {
	type result struct {
		idx int
		err error
	}
	ch := make(chan result, len(probes))
	for i, p := range probes {
		go func() {
			ch <- result{idx: i, err: check(ctx, p)}
		}()
	}

	done := make([]bool, len(probes))
	errs := make([]error, len(probes))
collect:
	for range probes {
		select {
		case res := <-ch:
			done[res.idx] = true
			errs[res.idx] = res.err
		case <-ctx.Done():
			break collect
		}
	}

	out := make(map[string]componentStatus, len(probes))
	for i, p := range probes {
		switch {
		case !done[i]:
			out[p.Name()] = componentStatus{Status: statusUnhealthy, Message: "health check timed out"}
		case errs[i] != nil:
			out[p.Name()] = componentStatus{Status: statusUnhealthy, Message: errs[i].Error()}
		default:
			out[p.Name()] = componentStatus{Status: statusHealthy}
		}
	}
	return out
}

func check(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panicked: %v", rec)
		}
	}()
	return p.Check(ctx)
}
