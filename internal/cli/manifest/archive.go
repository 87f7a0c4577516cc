package manifest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

type archiveEntry struct {
	path string
	body []byte
}

// encodingOf returns the compression or archive encoding implied by the
// suffix of name, or "" for a plain file.
func encodingOf(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return EncodingTarGzip
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return EncodingTarXz
	case strings.HasSuffix(lower, ".zst"):
		return EncodingZstd
	case strings.HasSuffix(lower, ".xz"):
		return EncodingXz
	default:
		return ""
	}
}

// unpack turns a fetched artifact into the name and content of a config
// file. Compressed files lose their suffix; archives yield the entry named
// base with a known config extension closest to the archive root.
func unpack(name string, content []byte, base string) (string, []byte, error) {
	switch encoding := encodingOf(name); encoding {
	case "":
		return name, content, nil
	case EncodingZstd:
		decoded, err := decodeZstd(content)
		if err != nil {
			return "", nil, fmt.Errorf("decode zstd %s: %w", name, err)
		}
		return name[:len(name)-len(".zst")], decoded, nil
	case EncodingXz:
		decoded, err := decodeXz(content)
		if err != nil {
			return "", nil, fmt.Errorf("decode xz %s: %w", name, err)
		}
		return name[:len(name)-len(".xz")], decoded, nil
	default:
		entries, err := readArchiveEntries(content, encoding)
		if err != nil {
			return "", nil, fmt.Errorf("read archive %s: %w", name, err)
		}
		entry := selectConfigEntry(entries, base)
		if entry == nil {
			return "", nil, fmt.Errorf("no %s file found in archive %s", base, name)
		}
		return entry.path, entry.body, nil
	}
}

func decodeZstd(content []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(content, nil)
}

func decodeXz(content []byte) ([]byte, error) {
	reader, err := xz.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

// selectConfigEntry picks the shallowest entry named base plus a config
// extension, preferring extensions in pkgmanifest.ConfigExtensions order.
func selectConfigEntry(entries []archiveEntry, base string) *archiveEntry {
	var best *archiveEntry
	bestDepth, bestRank := 0, 0
	for i := range entries {
		entry := &entries[i]
		rank := configRank(path.Base(entry.path), base)
		if rank < 0 {
			continue
		}
		depth := strings.Count(entry.path, "/")
		if best == nil || depth < bestDepth || (depth == bestDepth && rank < bestRank) {
			best, bestDepth, bestRank = entry, depth, rank
		}
	}
	return best
}

func configRank(name, base string) int {
	for i, ext := range pkgmanifest.ConfigExtensions {
		if name == base+ext {
			return i
		}
	}
	return -1
}

func readArchiveEntries(content []byte, encoding string) ([]archiveEntry, error) {
	reader, closer, err := openArchiveReader(content, encoding)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	tarReader := tar.NewReader(reader)
	var entries []archiveEntry
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !header.FileInfo().Mode().IsRegular() {
			continue
		}

		entryPath, err := normalizeArchiveEntryName(header.Name)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archiveEntry{path: entryPath, body: body})
	}
	return entries, nil
}

func openArchiveReader(content []byte, encoding string) (io.Reader, io.Closer, error) {
	var baseReader io.Reader = bytes.NewReader(content)
	switch encoding {
	case EncodingTarGzip:
		gzipReader, err := gzip.NewReader(baseReader)
		if err != nil {
			return nil, nil, err
		}
		return gzipReader, gzipReader, nil
	case EncodingTarXz:
		xzReader, err := xz.NewReader(baseReader)
		if err != nil {
			return nil, nil, err
		}
		return xzReader, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive encoding %q", encoding)
	}
}

func normalizeArchiveEntryName(value string) (string, error) {
	cleaned := filepath.Clean(value)
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("invalid archive entry path %q", value)
	}
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry path escapes root: %q", value)
	}
	return filepath.ToSlash(cleaned), nil
}
