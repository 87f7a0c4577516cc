package manifest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/pirakansa/kitup/internal/cli/shared"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

const hclKitfile = `
packages = ["ripgrep"]

brew "install" {
  pkgs = ["jq"]

  pkg "kubernetes-cli" {
    version_check = "kubectl version --client"
  }
}

curl "install" {
  script "atuin" {
    url = "https://setup.atuin.sh"
    env = {
      ATUIN_NO_MODIFY_PATH = "1"
    }
  }
}

git "install" {
  repo "blesh" {
    url       = "https://github.com/akinomyoga/ble.sh.git"
    install   = "make -C ble.sh install PREFIX=~/.local"
    recursive = true
    depth     = 1
  }
}

git "later" {
  repo "ignored" {
    url     = "https://example.com/ignored.git"
    install = "true"
  }
}
`

const tomlKitfile = `
packages = ["ripgrep"]

[nix.install.pkg.devenv]
flake = "github:cachix/devenv/latest"
depends_on = ["cachix"]

[nix.install.pkg.cachix]
flake = "github:cachix/cachix"
`

const yamlKitfile = `
install:
  packages: [git, tmux]
apt:
  install:
    pkg:
      vim:
        packages: [vim-nox]
      git:
        apt_update: false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		body := files[name]
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func TestLoadConfigurationHCL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Kitfile.hcl", hclKitfile)

	loaded, err := LoadConfiguration(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadConfiguration returned error: %v", err)
	}
	cfg := loaded.Config
	if !slices.Equal(cfg.Packages, []string{"ripgrep"}) {
		t.Fatalf("unexpected packages: %v", cfg.Packages)
	}
	if got := cfg.BrewPackages().Names(); !slices.Equal(got, []string{"kubernetes-cli", "jq"}) {
		t.Fatalf("unexpected brew packages: %v", got)
	}
	script, ok := cfg.CurlScripts().Get("atuin")
	if !ok || script.Env["ATUIN_NO_MODIFY_PATH"] != "1" {
		t.Fatalf("unexpected atuin script: %+v", script)
	}
	repos := cfg.GitRepositories()
	if !slices.Equal(repos.Names(), []string{"blesh"}) {
		t.Fatalf("unexpected git repos: %v", repos.Names())
	}
	if depth := pkgmanifest.Value(repos[0].Depth, 0); depth != 1 {
		t.Fatalf("unexpected depth: %d", depth)
	}
	if !strings.HasPrefix(loaded.Digest, "blake3:") {
		t.Fatalf("unexpected digest: %s", loaded.Digest)
	}
}

func TestLoadConfigurationTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Kitfile.toml", tomlKitfile)

	loaded, err := LoadConfiguration(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadConfiguration returned error: %v", err)
	}
	if got := loaded.Config.NixPackages().Names(); !slices.Equal(got, []string{"cachix", "devenv"}) {
		t.Fatalf("unexpected nix packages: %v", got)
	}
}

func TestLoadConfigurationYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Kitfile.yml", yamlKitfile)

	loaded, err := LoadConfiguration(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadConfiguration returned error: %v", err)
	}
	cfg := loaded.Config
	if !slices.Equal(cfg.Install.Packages, []string{"git", "tmux"}) {
		t.Fatalf("unexpected generic packages: %v", cfg.Install.Packages)
	}
	if got := cfg.AptPackages().Names(); !slices.Equal(got, []string{"vim", "git"}) {
		t.Fatalf("unexpected apt packages: %v", got)
	}
}

func TestLoadConfigurationReportsConfigError(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"Kitfile.hcl":  `brew "install" {`,
		"Kitfile.yaml": "curl:\n  install:\n    script:\n      atuin: {}\n",
		"Kitfile.json": "{}",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name, content)
			_, err := LoadConfiguration(context.Background(), path, LoadOptions{})
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Path != path {
				t.Fatalf("unexpected error path: %s", cfgErr.Path)
			}
		})
	}

	_, err := LoadConfiguration(context.Background(), filepath.Join(dir, "missing.hcl"), LoadOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfigurationFromURL(t *testing.T) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := encoder.EncodeAll([]byte(tomlKitfile), nil)
	encoder.Close()

	archive := tarGz(t, map[string]string{
		"kit-main/docs/Kitfile.hcl": `packages = ["wrong"]`,
		"kit-main/Kitfile.yaml":     yamlKitfile,
		"kit-main/Kitfile.hcl":      hclKitfile,
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Kitfile.yaml":
			_, _ = w.Write([]byte(yamlKitfile))
		case "/Kitfile.toml.zst":
			_, _ = w.Write(compressed)
		case "/kit.tar.gz":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	plain, err := LoadConfiguration(ctx, srv.URL+"/Kitfile.yaml", LoadOptions{})
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	if got := plain.Config.AptPackages().Names(); !slices.Equal(got, []string{"vim", "git"}) {
		t.Fatalf("unexpected apt packages: %v", got)
	}

	zst, err := LoadConfiguration(ctx, srv.URL+"/Kitfile.toml.zst", LoadOptions{})
	if err != nil {
		t.Fatalf("zst: %v", err)
	}
	if got := zst.Config.NixPackages().Names(); !slices.Equal(got, []string{"cachix", "devenv"}) {
		t.Fatalf("unexpected nix packages: %v", got)
	}
	if zst.Digest != Digest(compressed) {
		t.Fatalf("digest must cover fetched bytes")
	}

	tgz, err := LoadConfiguration(ctx, srv.URL+"/kit.tar.gz", LoadOptions{})
	if err != nil {
		t.Fatalf("tar.gz: %v", err)
	}
	if !slices.Equal(tgz.Config.Packages, []string{"ripgrep"}) {
		t.Fatalf("expected root Kitfile.hcl to win, got packages %v", tgz.Config.Packages)
	}

	if _, err := LoadConfiguration(ctx, srv.URL+"/missing.yaml", LoadOptions{}); err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestLoadConfigurationVerifiesChecksum(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Kitfile.yaml", yamlKitfile)
	ctx := context.Background()

	good, _ := shared.Checksum(shared.DigestSHA256, []byte(yamlKitfile))
	if _, err := LoadConfiguration(ctx, path, LoadOptions{Checksum: good}); err != nil {
		t.Fatalf("matching checksum rejected: %v", err)
	}
	bad := "blake3:" + strings.Repeat("0", 64)
	if _, err := LoadConfiguration(ctx, path, LoadOptions{Checksum: bad}); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if _, err := LoadConfiguration(ctx, path, LoadOptions{Checksum: "md5"}); err == nil || !strings.Contains(err.Error(), "invalid checksum format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoadRepositoryFetchesTarball(t *testing.T) {
	archive := tarGz(t, map[string]string{"octo-kit-0a1b2c/Kitfile.toml": tomlKitfile})
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	prev := GitHubAPIURL
	GitHubAPIURL = srv.URL
	defer func() { GitHubAPIURL = prev }()

	loaded, err := LoadRepository(context.Background(), "octo/kit@v1", LoadOptions{})
	if err != nil {
		t.Fatalf("LoadRepository returned error: %v", err)
	}
	if gotPath != "/repos/octo/kit/tarball/v1" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Fatalf("unexpected accept header: %s", gotAccept)
	}
	if loaded.Location != "octo/kit@v1" {
		t.Fatalf("unexpected location: %s", loaded.Location)
	}
	if got := loaded.Config.NixPackages().Names(); !slices.Equal(got, []string{"cachix", "devenv"}) {
		t.Fatalf("unexpected nix packages: %v", got)
	}
}

func TestGitHubTarballURLRejectsMalformedRepos(t *testing.T) {
	for _, repo := range []string{"", "octo", "/kit", "octo/", "octo/kit/extra"} {
		if _, err := GitHubTarballURL(repo); err == nil {
			t.Fatalf("expected error for %q", repo)
		}
	}
}

func TestFindConfigurationPrefersHCL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Kitfile.yaml", yamlKitfile)
	if got, err := FindConfiguration(dir); err != nil || filepath.Base(got) != "Kitfile.yaml" {
		t.Fatalf("unexpected result: %s %v", got, err)
	}
	writeFile(t, dir, "Kitfile.hcl", hclKitfile)
	if got, err := FindConfiguration(dir); err != nil || filepath.Base(got) != "Kitfile.hcl" {
		t.Fatalf("unexpected result: %s %v", got, err)
	}

	_, err := FindInventory(dir)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing inventory error, got %v", err)
	}
}

func TestLoadInventory(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Inventory.hcl", `
server "web" {
  host     = "10.0.0.5"
  username = "deploy"
}

server "db" {
  host     = "10.0.0.6"
  port     = 2222
  username = "deploy"
}
`)
	inv, err := LoadInventory(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadInventory returned error: %v", err)
	}
	if got := inv.Server.Names(); !slices.Equal(got, []string{"web", "db"}) {
		t.Fatalf("unexpected servers: %v", got)
	}
	if port := pkgmanifest.Value(inv.Server[1].Port, 22); port != 2222 {
		t.Fatalf("unexpected port: %d", port)
	}

	empty := writeFile(t, dir, "Inventory.yaml", "server: {}\n")
	if _, err := LoadInventory(context.Background(), empty); err == nil || !strings.Contains(err.Error(), "no servers") {
		t.Fatalf("expected empty inventory error, got %v", err)
	}
}
