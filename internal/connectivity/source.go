package connectivity

import (
	"context"
	"log/slog"
	"time"
)

// Source feeds platform signals into a Monitor until ctx is done.
type Source interface {
	Run(ctx context.Context, m *Monitor) error
}

type prober interface {
	Probe(ctx context.Context, path string) error
}

// ProbeSource polls a health endpoint of the remote API and reports the
// result to the Monitor. Only changes reach listeners; Monitor drops repeats.
type ProbeSource struct {
	prober   prober
	path     string
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// NewProbeSource creates a ProbeSource.
func NewProbeSource(logger *slog.Logger, p prober, path string, interval, timeout time.Duration) *ProbeSource {
	return &ProbeSource{
		prober:   p,
		path:     path,
		interval: interval,
		timeout:  timeout,
		log:      logger.With("component", "connectivity.probe"),
	}
}

// Run probes immediately and then every interval.
func (s *ProbeSource) Run(ctx context.Context, m *Monitor) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.check(ctx, m)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *ProbeSource) check(ctx context.Context, m *Monitor) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.prober.Probe(probeCtx, s.path)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.log.DebugContext(ctx, "probe failed", slog.String("error", err.Error()))
	}
	m.Handle(err == nil)
}
