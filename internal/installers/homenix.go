package installers

import (
	"errors"
	"strings"
)

var errNoPackageList = errors.New("home.nix has no home.packages list")

// AddHomePackages inserts pkgs into the home.packages list of a home.nix
// file. Names without a pkgs. prefix get one; entries already in the list
// are skipped. It reports whether content changed.
func AddHomePackages(content string, pkgs []string) (string, bool, error) {
	open, closing, err := locatePackageList(content)
	if err != nil {
		return content, false, err
	}
	existing := listTokens(content[open+1 : closing])

	var add []string
	for _, pkg := range pkgs {
		if !strings.HasPrefix(pkg, "pkgs.") {
			pkg = "pkgs." + pkg
		}
		if existing[pkg] || existing[strings.TrimPrefix(pkg, "pkgs.")] {
			continue
		}
		existing[pkg] = true
		add = append(add, pkg)
	}
	if len(add) == 0 {
		return content, false, nil
	}

	lineStart := strings.LastIndexByte(content[:closing], '\n') + 1
	indent := content[lineStart:closing]
	if strings.TrimSpace(indent) != "" {
		// The list closes on a line with other content: append inline.
		return content[:closing] + " " + strings.Join(add, " ") + " " + content[closing:], true, nil
	}
	var b strings.Builder
	for _, pkg := range add {
		b.WriteString(indent + "  " + pkg + "\n")
	}
	return content[:lineStart] + b.String() + content[lineStart:], true, nil
}

// locatePackageList returns the offsets of the brackets around the
// home.packages list, ignoring comments and strings.
func locatePackageList(content string) (int, int, error) {
	const key = "home.packages"
	for i := 0; i < len(content); i++ {
		switch {
		case content[i] == '#':
			i = skipComment(content, i)
		case content[i] == '"':
			i = skipString(content, i)
		case strings.HasPrefix(content[i:], key) && (i == 0 || !isIdentChar(content[i-1])):
			j := skipSpace(content, i+len(key))
			if j >= len(content) || content[j] != '=' {
				continue
			}
			j = skipSpace(content, j+1)
			if strings.HasPrefix(content[j:], "with pkgs;") {
				j = skipSpace(content, j+len("with pkgs;"))
			}
			if j >= len(content) || content[j] != '[' {
				return 0, 0, errNoPackageList
			}
			end := matchBracket(content, j)
			if end < 0 {
				return 0, 0, errors.New("home.packages list is not closed")
			}
			return j, end, nil
		}
	}
	return 0, 0, errNoPackageList
}

func matchBracket(content string, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '#':
			i = skipComment(content, i)
		case '"':
			i = skipString(content, i)
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// listTokens returns the uncommented words of a list body.
func listTokens(body string) map[string]bool {
	tokens := map[string]bool{}
	for _, line := range strings.Split(body, "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		for _, field := range strings.Fields(line) {
			tokens[field] = true
		}
	}
	return tokens
}

func skipComment(content string, i int) int {
	if end := strings.IndexByte(content[i:], '\n'); end >= 0 {
		return i + end
	}
	return len(content)
}

func skipString(content string, i int) int {
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(content)
}

func skipSpace(content string, i int) int {
	for i < len(content) && strings.ContainsRune(" \t\r\n", rune(content[i])) {
		i++
	}
	return i
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
