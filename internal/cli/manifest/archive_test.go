package manifest

import (
	"bytes"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestSelectConfigEntryPrefersShallowThenExtensionOrder(t *testing.T) {
	entries := []archiveEntry{
		{path: "repo/nested/Kitfile.hcl", body: []byte("nested")},
		{path: "repo/Kitfile.yaml", body: []byte("yaml")},
		{path: "repo/Kitfile.toml", body: []byte("toml")},
		{path: "repo/README.md", body: []byte("readme")},
	}
	got := selectConfigEntry(entries, "Kitfile")
	if got == nil || got.path != "repo/Kitfile.toml" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if miss := selectConfigEntry(entries, "Inventory"); miss != nil {
		t.Fatalf("expected no inventory entry, got %+v", miss)
	}
}

func TestNormalizeArchiveEntryNameRejectsEscapes(t *testing.T) {
	for _, name := range []string{"../Kitfile.hcl", "/etc/passwd", "./"} {
		if _, err := normalizeArchiveEntryName(name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
	got, err := normalizeArchiveEntryName("./repo//Kitfile.hcl")
	if err != nil || got != "repo/Kitfile.hcl" {
		t.Fatalf("unexpected result: %q %v", got, err)
	}
}

func TestUnpackXz(t *testing.T) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz.NewWriter: %v", err)
	}
	if _, err := w.Write([]byte(yamlKitfile)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	name, content, err := unpack("Kitfile.yaml.xz", buf.Bytes(), "Kitfile")
	if err != nil {
		t.Fatalf("unpack returned error: %v", err)
	}
	if name != "Kitfile.yaml" || string(content) != yamlKitfile {
		t.Fatalf("unexpected result: %s %q", name, content)
	}
}

func TestUnpackPassesPlainFilesThrough(t *testing.T) {
	name, content, err := unpack("Kitfile.hcl", []byte("x"), "Kitfile")
	if err != nil || name != "Kitfile.hcl" || string(content) != "x" {
		t.Fatalf("unexpected result: %s %q %v", name, content, err)
	}
}

func TestUnpackArchiveWithoutConfig(t *testing.T) {
	archive := tarGz(t, map[string]string{"repo/README.md": "hi"})
	if _, _, err := unpack("repo.tgz", archive, "Kitfile"); err == nil {
		t.Fatalf("expected missing Kitfile error")
	}
}
