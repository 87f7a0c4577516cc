package executor

import (
	"maps"
	"slices"
	"strings"
)

// Quote wraps s in single quotes for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// LocalArgs is the argv used to run cmd on the local host.
func LocalArgs(cmd Command) []string {
	return []string{cmd.shell(), "-c", cmd.Script}
}

// RemoteCommandLine is the single command string sent over an SSH
// session. The remote login shell unquotes it back to LocalArgs, prefixed
// by env when cmd sets variables.
func RemoteCommandLine(cmd Command) string {
	var b strings.Builder
	if len(cmd.Env) > 0 {
		b.WriteString("env")
		for _, key := range slices.Sorted(maps.Keys(cmd.Env)) {
			b.WriteString(" ")
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(Quote(cmd.Env[key]))
		}
		b.WriteString(" ")
	}
	b.WriteString(cmd.shell())
	b.WriteString(" -c ")
	b.WriteString(Quote(cmd.Script))
	return b.String()
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, key := range slices.Sorted(maps.Keys(env)) {
		out = append(out, key+"="+env[key])
	}
	return out
}
