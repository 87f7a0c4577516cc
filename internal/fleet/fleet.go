package fleet

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/internal/osinfo"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Session is an open connection to one server.
type Session interface {
	executor.Executor
	io.Closer
}

type Connector interface {
	Connect(ctx context.Context, server manifest.Server) (Session, error)
}

type ConnectorFunc func(ctx context.Context, server manifest.Server) (Session, error)

func (f ConnectorFunc) Connect(ctx context.Context, server manifest.Server) (Session, error) {
	return f(ctx, server)
}

// HostError is a failed run against one server.
type HostError struct {
	Host string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Host, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Parallel bounds concurrently provisioned servers; zero means all.
	Parallel int
	// Observers returns extra observers for the graph of one host.
	Observers func(host string) []graph.Observer
}

// Run applies job to every server concurrently. A failing server never
// stops the others. Reports are returned in server order together with
// the combined HostErrors of every failed server.
func Run(ctx context.Context, job Job, servers []manifest.Server, connector Connector, opts Options) ([]Report, error) {
	reports := make([]Report, len(servers))
	limit := opts.Parallel
	if limit <= 0 || limit > len(servers) {
		limit = len(servers)
	}
	if limit == 0 {
		return reports, nil
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, server := range servers {
		g.Go(func() error {
			reports[i] = runServer(ctx, job, server, connector, opts)
			return nil
		})
	}
	_ = g.Wait()

	var err error
	for _, r := range reports {
		if r.Err != nil {
			err = multierr.Append(err, &HostError{Host: r.Host, Err: r.Err})
		}
	}
	return reports, err
}

func runServer(ctx context.Context, job Job, server manifest.Server, connector Connector, opts Options) Report {
	host := server.Name
	if host == "" {
		host = server.Host
	}
	ctx = logutil.With(ctx, zap.String("host", host))
	start := time.Now()

	session, err := connector.Connect(ctx, server)
	if err != nil {
		logutil.FromContext(ctx).Error("connect failed", zap.Error(err))
		return Report{Host: host, Err: err, Duration: time.Since(start)}
	}
	defer session.Close()

	var observers []graph.Observer
	if opts.Observers != nil {
		observers = opts.Observers(host)
	}
	report := job.Run(ctx, session, osinfo.Remote{Exec: session}, observers...)
	report.Host = host
	report.Duration = time.Since(start)
	if report.Err != nil {
		logutil.FromContext(ctx).Error("install failed", zap.Error(report.Err))
	}
	return report
}
