package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/cli/shared"
	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/executor/executortest"
	"github.com/pirakansa/kitup/internal/fleet"
	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/internal/osinfo"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

const gitKitfile = `
install:
  packages: [git]
`

func testApp(rec *executortest.Recorder, osID string) *appContext {
	return &appContext{
		newLocal: func() executor.Executor { return rec },
		identify: func(executor.Executor) osinfo.Identifier { return osinfo.Static(osID) },
		connect: func(context.Context, bool) (fleet.Connector, io.Closer, error) {
			return nil, nil, errors.New("ssh is not available in tests")
		},
		stdin: strings.NewReader(""),
		now:   func() time.Time { return testNow },
	}
}

func execute(t *testing.T, app *appContext, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out, logs bytes.Buffer
	cmd := newRootCmd(app, "test")
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	err := cmd.Execute()
	return out.String(), err
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
}

func writeKitfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func expectExitCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected exit code %d, got success", code)
	}
	if got := mapExitCode(err); got != code {
		t.Fatalf("expected exit code %d got %d (err=%v)", code, got, err)
	}
}

type fakeSession struct {
	*executortest.Recorder
}

func (fakeSession) Close() error { return nil }

func TestMapExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{newExitCodeError(shared.ExitUsage, errors.New("x")), shared.ExitUsage},
		{fmt.Errorf("load: %w", &pkgmanifest.ConfigError{Path: "Kitfile.hcl", Err: os.ErrNotExist}), shared.ExitConfigError},
		{&pkgmanifest.UnsupportedOSError{ID: "plan9"}, shared.ExitConfigError},
		{&fleet.HostError{Host: "web", Err: &graph.ToolNotFoundError{Name: "ghost"}}, shared.ExitToolNotFound},
		{&graph.CyclicDependencyError{Cycle: []string{"a", "b", "a"}}, shared.ExitCyclicDependency},
		{errors.New("other"), shared.ExitFailed},
	}
	for _, tc := range cases {
		if got := mapExitCode(tc.err); got != tc.want {
			t.Fatalf("mapExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParseTools(t *testing.T) {
	got := parseTools([]string{"git, ble.sh", "nix,", "devenv"})
	want := []string{"git", "blesh", "nix", "devenv"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected tools: %v", got)
	}
}

func TestInitCommandCreatesFilesAndFailsOnSecondRun(t *testing.T) {
	temp := t.TempDir()
	chdir(t, temp)
	app := testApp(executortest.New(), "ubuntu")

	out, err := execute(t, app, "init")
	if err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if !strings.Contains(out, "Created Kitfile.hcl") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(temp, "Kitfile.hcl")); err != nil {
		t.Fatalf("Kitfile.hcl missing: %v", err)
	}

	_, err = execute(t, app, "init")
	expectExitCode(t, err, shared.ExitUsage)

	if _, err := execute(t, app, "init", "--force", "ripgrep"); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
	backup := filepath.Join(temp, "Kitfile.hcl.20261018090000.bak")
	if b, err := os.ReadFile(backup); err != nil || !strings.Contains(string(b), `brew "install"`) {
		t.Fatalf("backup missing or wrong: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(temp, "Kitfile.hcl"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) != `packages = ["ripgrep"]` {
		t.Fatalf("unexpected package Kitfile:\n%s", b)
	}
}

func TestInitTemplatesLoadInEveryFormat(t *testing.T) {
	for _, format := range []string{manifest.FormatHCL, manifest.FormatTOML, manifest.FormatYAML} {
		for _, osID := range []string{"ubuntu", "debian", "darwin", "fedora"} {
			content, err := renderKitfile(format, osID, nil)
			if err != nil {
				t.Fatalf("%s/%s: render: %v", format, osID, err)
			}
			path := writeKitfile(t, t.TempDir(), "Kitfile."+format, string(content))
			loaded, err := manifest.LoadConfiguration(context.Background(), path, manifest.LoadOptions{})
			if err != nil {
				t.Fatalf("%s/%s: load: %v\n%s", format, osID, err, content)
			}
			cfg := loaded.Config

			// TOML tables come back in key order.
			if got := strings.Join(slices.Sorted(slices.Values(cfg.BrewPackages().Names())), ","); got != "bat,direnv,kubernetes-cli,minikube,tilt" {
				t.Fatalf("%s/%s: unexpected brew packages %s", format, osID, got)
			}
			if got := strings.Join(cfg.NixPackages().Names(), ","); got != "cachix,devenv" {
				t.Fatalf("%s/%s: unexpected nix packages %s", format, osID, got)
			}
			devbox, ok := cfg.CurlScripts().Get("devbox")
			if !ok || devbox.Env["FORCE"] != "1" {
				t.Fatalf("%s/%s: unexpected devbox script %+v", format, osID, devbox)
			}
			blesh, ok := cfg.GitRepositories().Get("blesh")
			if !ok || pkgmanifest.Value(blesh.Depth, 0) != 1 {
				t.Fatalf("%s/%s: unexpected blesh repo %+v", format, osID, blesh)
			}

			apt := strings.Join(cfg.AptPackages().Names(), ",")
			switch osID {
			case "ubuntu":
				if apt != "vscode" {
					t.Fatalf("%s/%s: unexpected apt packages %s", format, osID, apt)
				}
				minikube, _ := cfg.BrewPackages().Get("minikube")
				if !strings.Contains(pkgmanifest.Value(minikube.Postinstall, ""), `#user = "root"`) {
					t.Fatalf("%s/%s: minikube postinstall lost: %+v", format, osID, minikube)
				}
			case "debian":
				if apt != "docker,vscode" {
					t.Fatalf("%s/%s: unexpected apt packages %s", format, osID, apt)
				}
			case "darwin":
				if apt != "" || strings.Join(blesh.DependsOn, ",") != pkgmanifest.HomebrewToolName {
					t.Fatalf("%s/%s: unexpected darwin defaults: apt=%s blesh=%+v", format, osID, apt, blesh)
				}
			case "fedora":
				if apt != "" || blesh.Preinstall != nil {
					t.Fatalf("%s/%s: unexpected fedora defaults: apt=%s blesh=%+v", format, osID, apt, blesh)
				}
			}
		}
	}
}

func TestInitPackagesAndInventoryTemplatesLoad(t *testing.T) {
	for _, format := range []string{manifest.FormatHCL, manifest.FormatTOML, manifest.FormatYAML} {
		content, err := renderKitfile(format, "ubuntu", []string{"git", "tmux"})
		if err != nil {
			t.Fatal(err)
		}
		path := writeKitfile(t, t.TempDir(), "Kitfile."+format, string(content))
		loaded, err := manifest.LoadConfiguration(context.Background(), path, manifest.LoadOptions{})
		if err != nil {
			t.Fatalf("%s: load: %v\n%s", format, err, content)
		}
		if strings.Join(loaded.Config.Packages, ",") != "git,tmux" {
			t.Fatalf("%s: unexpected packages %v", format, loaded.Config.Packages)
		}

		content, err = renderInventory(format)
		if err != nil {
			t.Fatal(err)
		}
		path = writeKitfile(t, t.TempDir(), "Inventory."+format, string(content))
		inv, err := manifest.LoadInventory(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: load inventory: %v\n%s", format, err, content)
		}
		server, ok := inv.Server.Get("server1")
		if !ok || server.Host != "127.0.0.1" || server.Username != "username" || pkgmanifest.Value(server.Port, 0) != 22 {
			t.Fatalf("%s: unexpected server %+v", format, server)
		}
	}
}

func TestInstallCommandRunsLocally(t *testing.T) {
	temp := t.TempDir()
	config := writeKitfile(t, temp, "Kitfile.yaml", gitKitfile)
	statePath := filepath.Join(temp, "kitup.state")
	metricsPath := filepath.Join(temp, "kitup.prom")
	rec := executortest.New()

	out, err := execute(t, testApp(rec, "ubuntu"), "--config", config, "install", "--state-file", statePath, "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("install failed: %v\n%s", err, out)
	}
	if !containsAll(out, []string{"git (apt) installed in", "1 tool installed, 0 already present, 0 failed"}) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !containsAll(strings.Join(rec.Scripts(), "\n"), []string{"sudo apt-get install -y git"}) {
		t.Fatalf("unexpected scripts: %v", rec.Scripts())
	}

	state, err := manifest.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	host := state.Hosts["local"]
	if host.Tools["git"].Outcome != "installed" || host.Tools["git"].Provider != "apt" {
		t.Fatalf("unexpected state: %+v", host)
	}
	if host.UpdatedAt != "2026-10-18T09:00:00Z" || !strings.HasPrefix(host.ConfigDigest, "blake3:") {
		t.Fatalf("unexpected host state: %+v", host)
	}

	b, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file missing: %v", err)
	}
	if !strings.Contains(string(b), `kitup_vertex_install_total{host="local",outcome="installed",provider="apt"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", b)
	}
}

func TestInstallCommandReportsFailures(t *testing.T) {
	temp := t.TempDir()
	config := writeKitfile(t, temp, "Kitfile.yaml", gitKitfile)
	rec := executortest.New().FailOn("apt-get install -y git", 100)

	out, err := execute(t, testApp(rec, "ubuntu"), "--config", config, "install", "--state-file", "")
	expectExitCode(t, err, shared.ExitInstallFailed)
	if !containsAll(out, []string{"git (apt) failed", "    command: sudo apt-get install -y git", "0 tools installed, 0 already present, 1 failed"}) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(temp, manifest.StateFileName)); err == nil {
		t.Fatalf("state file written although disabled")
	}
}

func TestInstallCommandUnknownTool(t *testing.T) {
	config := writeKitfile(t, t.TempDir(), "Kitfile.yaml", gitKitfile)
	_, err := execute(t, testApp(executortest.New(), "ubuntu"), "--config", config, "install", "--state-file", "", "ghost")
	expectExitCode(t, err, shared.ExitToolNotFound)
}

func TestInstallCommandReturnsConfigErrorWhenKitfileMissing(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := execute(t, testApp(executortest.New(), "ubuntu"), "install")
	expectExitCode(t, err, shared.ExitConfigError)

	_, err = execute(t, testApp(executortest.New(), "plan9"), "--config", writeKitfile(t, t.TempDir(), "Kitfile.yaml", gitKitfile), "install", "--state-file", "")
	expectExitCode(t, err, shared.ExitConfigError)
}

func TestInstallCommandRequiresUsernameForRemote(t *testing.T) {
	config := writeKitfile(t, t.TempDir(), "Kitfile.yaml", gitKitfile)
	_, err := execute(t, testApp(executortest.New(), "ubuntu"), "--config", config, "install", "--remote=10.0.0.1")
	expectExitCode(t, err, shared.ExitUsage)
}

func TestInstallCommandAsksForConfirmation(t *testing.T) {
	config := writeKitfile(t, t.TempDir(), "Kitfile.yaml", gitKitfile)
	rec := executortest.New()
	app := testApp(rec, "ubuntu")

	app.stdin = strings.NewReader("n\n")
	out, err := execute(t, app, "--config", config, "install", "--ask", "--state-file", "")
	if err != nil {
		t.Fatalf("declined install failed: %v", err)
	}
	if !containsAll(out, []string{"The following tools will be installed:", "  - git", "these 1 tool? [y/N]", "installation cancelled"}) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if len(rec.Scripts()) != 0 {
		t.Fatalf("commands ran after declining: %v", rec.Scripts())
	}

	app.stdin = strings.NewReader("y\n")
	if _, err := execute(t, app, "--config", config, "install", "--ask", "--state-file", ""); err != nil {
		t.Fatalf("confirmed install failed: %v", err)
	}
	if len(rec.Scripts()) == 0 {
		t.Fatalf("nothing installed after confirming")
	}
}

func TestInstallCommandRunsOnInventory(t *testing.T) {
	temp := t.TempDir()
	config := writeKitfile(t, temp, "Kitfile.yaml", gitKitfile)
	inventory := writeKitfile(t, temp, "Inventory.yaml", `
server:
  web:
    host: 10.0.0.1
    username: deploy
  db:
    host: 10.0.0.2
    username: deploy
    port: 2222
`)
	statePath := filepath.Join(temp, "kitup.state")
	sessions := map[string]*executortest.Recorder{
		"web": executortest.NewRemote("web").Respond("os-release", "ubuntu\n"),
		"db":  executortest.NewRemote("db").Respond("os-release", "ubuntu\n").FailOn("apt-get install -y git", 100),
	}
	app := testApp(executortest.New(), "ubuntu")
	var insecure bool
	app.connect = func(_ context.Context, skipHostKey bool) (fleet.Connector, io.Closer, error) {
		insecure = skipHostKey
		return fleet.ConnectorFunc(func(_ context.Context, server pkgmanifest.Server) (fleet.Session, error) {
			return fakeSession{sessions[server.Name]}, nil
		}), io.NopCloser(nil), nil
	}

	out, err := execute(t, app, "--config", config, "install", "--remote", "--inventory", inventory, "--state-file", statePath, "--insecure-ignore-host-key")
	expectExitCode(t, err, shared.ExitInstallFailed)
	if !insecure {
		t.Fatalf("host key flag not passed to the connector")
	}
	if !containsAll(out, []string{
		"-> Installing tools on 2 machines",
		"[web]    git (apt) installed in",
		"[db]    git (apt) failed",
		"[db] x ",
		"[web] -> 1 tool installed",
	}) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	state, err := manifest.LoadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if state.Hosts["web"].Tools["git"].Outcome != "installed" || state.Hosts["db"].Tools["git"].Outcome != "failed" {
		t.Fatalf("unexpected state: %+v", state.Hosts)
	}
}

func TestPlanCommandPrintsOrder(t *testing.T) {
	temp := t.TempDir()
	config := writeKitfile(t, temp, "Kitfile.yaml", `
brew:
  install:
    pkgs: [jq]
`)
	statePath := filepath.Join(temp, "kitup.state")
	rec := executortest.New()
	app := testApp(rec, "ubuntu")

	out, err := execute(t, app, "--config", config, "plan", "--os", "darwin", "--state-file", statePath)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	homebrew, jq := strings.Index(out, "homebrew"), strings.Index(out, "jq")
	if homebrew < 0 || jq < 0 || homebrew > jq {
		t.Fatalf("homebrew should be planned before jq:\n%s", out)
	}
	if strings.Contains(out, "Last run") {
		t.Fatalf("no run recorded yet:\n%s", out)
	}
	if len(rec.Scripts()) != 0 {
		t.Fatalf("plan ran commands: %v", rec.Scripts())
	}

	state := &manifest.StateFile{}
	state.Record("local", "blake3:old", map[string]manifest.ToolState{"jq": {Provider: "brew", Outcome: "installed"}}, testNow)
	if err := manifest.SaveState(statePath, state); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, app, "--config", config, "plan", "--os", "darwin", "--state-file", statePath)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if !containsAll(out, []string{"Last run on local", "configuration changed since", "installed"}) {
		t.Fatalf("unexpected plan output:\n%s", out)
	}
}

func TestPlanCommandUnsupportedOS(t *testing.T) {
	config := writeKitfile(t, t.TempDir(), "Kitfile.yaml", gitKitfile)
	_, err := execute(t, testApp(executortest.New(), "ubuntu"), "--config", config, "plan", "--os", "plan9", "--state-file", "")
	expectExitCode(t, err, shared.ExitConfigError)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, testApp(executortest.New(), "ubuntu"), "version")
	if err != nil || !strings.HasPrefix(out, "kitup test ") {
		t.Fatalf("unexpected version output %q %v", out, err)
	}
}

func containsAll(v string, items []string) bool {
	for _, item := range items {
		if !strings.Contains(v, item) {
			return false
		}
	}
	return true
}
