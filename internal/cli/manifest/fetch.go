package manifest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pirakansa/kitup/internal/cli/shared"
)

// GitHubAPIURL is the API root used to fetch repository tarballs.
var GitHubAPIURL = "https://api.github.com"

func download(ctx context.Context, location string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download failed: %s status=%d", location, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GitHubTarballURL returns the tarball endpoint for an owner/name
// repository, optionally at a ref given as owner/name@ref.
func GitHubTarballURL(repo string) (string, error) {
	repo, ref, _ := strings.Cut(strings.TrimSpace(repo), "@")
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid repository %q, want owner/name", repo)
	}
	url := fmt.Sprintf("%s/repos/%s/%s/tarball", strings.TrimSuffix(GitHubAPIURL, "/"), owner, name)
	if ref != "" {
		url += "/" + ref
	}
	return url, nil
}

func githubHeaders() map[string]string {
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// Digest returns the algorithm-prefixed BLAKE3 digest of content.
func Digest(content []byte) string {
	digest, _ := shared.Checksum(shared.DigestBLAKE3, content)
	return digest
}

func verifyChecksum(content []byte, checksum string) error {
	if checksum == "" {
		return nil
	}
	algorithm, digest, err := parseChecksumSpec(checksum)
	if err != nil {
		return err
	}
	if algorithm == "" {
		return nil
	}
	computed, err := shared.HexDigest(algorithm, content)
	if err != nil {
		return err
	}
	if computed != digest {
		return errors.New("checksum mismatch")
	}
	return nil
}

func parseChecksumSpec(value string) (string, string, error) {
	raw := strings.TrimSpace(strings.ToLower(value))
	if raw == "" {
		return "", "", nil
	}
	algorithm, digest, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(algorithm) == "" || strings.TrimSpace(digest) == "" {
		return "", "", fmt.Errorf("invalid checksum format %q", value)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", fmt.Errorf("invalid checksum hex %q", value)
	}
	return algorithm, digest, nil
}
