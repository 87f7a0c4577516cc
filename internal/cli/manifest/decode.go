package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// FormatOf returns the config format implied by the extension of name.
func FormatOf(name string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".hcl":
		return FormatHCL, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config format %q", name)
	}
}

func decode(name string, content []byte, out any) error {
	format, err := FormatOf(name)
	if err != nil {
		return err
	}
	switch format {
	case FormatHCL:
		return decodeHCL(name, content, out)
	case FormatTOML:
		if err := toml.Unmarshal(content, out); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
		return nil
	default:
		if err := yaml.Unmarshal(content, out); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil
	}
}

func decodeHCL(name string, content []byte, out any) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, name)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL: %w", diags)
	}
	if diags := gohcl.DecodeBody(file.Body, nil, out); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %w", diags)
	}
	return nil
}
