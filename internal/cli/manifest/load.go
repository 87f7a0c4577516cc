package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

// Loaded is a validated configuration and the location it was read from.
type Loaded struct {
	Config   *Configuration
	Location string
	// Digest identifies the fetched bytes before unpacking.
	Digest string
}

// LoadOptions controls how a configuration is fetched.
type LoadOptions struct {
	// Checksum, when set, must match the fetched bytes, e.g. "sha256:<hex>".
	Checksum string
}

func IsRemoteConfigLocation(value string) bool {
	return pkgmanifest.IsRemoteConfigLocation(value)
}

// FindConfiguration returns the first Kitfile in dir, trying extensions in
// pkgmanifest.ConfigExtensions order.
func FindConfiguration(dir string) (string, error) {
	return findFile(dir, pkgmanifest.ConfigBaseName)
}

// FindInventory returns the first Inventory file in dir.
func FindInventory(dir string) (string, error) {
	return findFile(dir, pkgmanifest.InventoryBaseName)
}

func findFile(dir, base string) (string, error) {
	for _, ext := range pkgmanifest.ConfigExtensions {
		candidate := filepath.Join(dir, base+ext)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", &ConfigError{Path: filepath.Join(dir, base+".*"), Err: os.ErrNotExist}
}

// LoadConfiguration reads, decodes and validates the configuration at
// location, which is a local path or an http(s) URL. Compressed files and
// archives containing a Kitfile are unpacked first.
func LoadConfiguration(ctx context.Context, location string, opts LoadOptions) (*Loaded, error) {
	name, content, err := readConfig(ctx, location, nil)
	if err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	return loadConfiguration(location, name, content, opts)
}

// LoadRepository loads the Kitfile at the root of a GitHub repository given
// as owner/name or owner/name@ref.
func LoadRepository(ctx context.Context, repo string, opts LoadOptions) (*Loaded, error) {
	location, err := GitHubTarballURL(repo)
	if err != nil {
		return nil, &ConfigError{Path: repo, Err: err}
	}
	content, err := download(ctx, location, githubHeaders())
	if err != nil {
		return nil, &ConfigError{Path: repo, Err: err}
	}
	return loadConfiguration(repo, "repository.tar.gz", content, opts)
}

func loadConfiguration(location, name string, content []byte, opts LoadOptions) (*Loaded, error) {
	if err := verifyChecksum(content, opts.Checksum); err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	digest := Digest(content)

	name, content, err := unpack(name, content, pkgmanifest.ConfigBaseName)
	if err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	var cfg Configuration
	if err := decode(name, content, &cfg); err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	if err := pkgmanifest.ValidateConfiguration(&cfg); err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	return &Loaded{Config: &cfg, Location: location, Digest: digest}, nil
}

// LoadInventory reads, decodes and validates the inventory at location.
func LoadInventory(ctx context.Context, location string) (*Inventory, error) {
	name, content, err := readConfig(ctx, location, nil)
	if err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	name, content, err = unpack(name, content, pkgmanifest.InventoryBaseName)
	if err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	var inv Inventory
	if err := decode(name, content, &inv); err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	if err := pkgmanifest.ValidateInventory(&inv); err != nil {
		return nil, &ConfigError{Path: location, Err: err}
	}
	return &inv, nil
}

// readConfig returns the file name used to pick a decoder and the raw
// content at location.
func readConfig(ctx context.Context, location string, headers map[string]string) (string, []byte, error) {
	if IsRemoteConfigLocation(location) {
		return readRemoteConfig(ctx, location, headers)
	}
	content, err := os.ReadFile(location)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(location), content, nil
}

func readRemoteConfig(ctx context.Context, location string, headers map[string]string) (string, []byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", nil, err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", nil, fmt.Errorf("cannot infer config format from %q", location)
	}
	content, err := download(ctx, location, headers)
	if err != nil {
		return "", nil, err
	}
	return name, content, nil
}
