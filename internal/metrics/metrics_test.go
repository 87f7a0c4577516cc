package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/pkg/manifest"
)

func TestRecorderCountsOutcomesPerHost(t *testing.T) {
	r := NewRecorder()
	web := r.ForHost("web")
	db := r.ForHost("db")

	nix := graph.Vertex{Name: "nix", Provider: manifest.ProviderCurl}
	jq := graph.Vertex{Name: "jq", Provider: manifest.ProviderBrew}
	web.Observe(nix, graph.OutcomeInstalled, 2*time.Second)
	web.Observe(jq, graph.OutcomeSkipped, 10*time.Millisecond)
	db.Observe(nix, graph.OutcomeFailed, time.Second)
	r.HostDone("web", nil)
	r.HostDone("db", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.installTotal.WithLabelValues("web", "curl", "installed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.installTotal.WithLabelValues("web", "brew", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.installTotal.WithLabelValues("db", "curl", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.hostSuccess.WithLabelValues("web")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.hostSuccess.WithLabelValues("db")))
	// skipped tools are not timed
	assert.Equal(t, 1, testutil.CollectAndCount(r.installDuration))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ForHost("local").Observe(graph.Vertex{Name: "devenv", Provider: manifest.ProviderNix}, graph.OutcomeInstalled, time.Second)
	path := filepath.Join(t.TempDir(), "kitup.prom")

	require.NoError(t, r.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.Contains(out, `kitup_vertex_install_total{host="local",outcome="installed",provider="nix"} 1`), out)
	assert.Contains(t, out, "kitup_last_run_timestamp_seconds")
	assert.Contains(t, out, `kitup_vertex_install_duration_seconds_count{provider="nix"} 1`)
}
