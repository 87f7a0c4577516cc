package manifest

import "fmt"

// ConfigError reports a configuration that could not be read, parsed, or
// validated.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnsupportedOSError reports an operating system with no known package
// manager for the generic install section.
type UnsupportedOSError struct {
	ID string
}

func (e *UnsupportedOSError) Error() string {
	return fmt.Sprintf("unsupported operating system %q", e.ID)
}
