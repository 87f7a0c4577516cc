package manifest

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const StateFileName = "kitup.state"

// StateFile records what each install run did per host.
type StateFile struct {
	Version string               `yaml:"version"`
	Hosts   map[string]HostState `yaml:"hosts"`
}

// HostState is the last install run against one host.
type HostState struct {
	ConfigDigest string               `yaml:"config_digest"`
	UpdatedAt    string               `yaml:"updated_at"`
	Tools        map[string]ToolState `yaml:"tools"`
}

// ToolState stores the last outcome for a tool on a host.
type ToolState struct {
	Provider  string `yaml:"provider"`
	Outcome   string `yaml:"outcome"`
	UpdatedAt string `yaml:"updated_at"`
}

func LoadState(path string) (*StateFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &StateFile{Version: "v1", Hosts: map[string]HostState{}}, nil
		}
		return nil, err
	}
	var state StateFile
	if err := yaml.Unmarshal(b, &state); err != nil {
		return nil, err
	}
	if state.Version == "" {
		state.Version = "v1"
	}
	if state.Hosts == nil {
		state.Hosts = map[string]HostState{}
	}
	return &state, nil
}

func SaveState(path string, state *StateFile) error {
	if state.Version == "" {
		state.Version = "v1"
	}
	if state.Hosts == nil {
		state.Hosts = map[string]HostState{}
	}
	b, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Record merges tools into the state of host. Tools recorded earlier and
// absent from tools are kept.
func (s *StateFile) Record(host, digest string, tools map[string]ToolState, now time.Time) {
	if s.Hosts == nil {
		s.Hosts = map[string]HostState{}
	}
	stamp := now.UTC().Format(time.RFC3339)
	hs := s.Hosts[host]
	if hs.Tools == nil {
		hs.Tools = map[string]ToolState{}
	}
	for name, tool := range tools {
		if tool.UpdatedAt == "" {
			tool.UpdatedAt = stamp
		}
		hs.Tools[name] = tool
	}
	hs.ConfigDigest = digest
	hs.UpdatedAt = stamp
	s.Hosts[host] = hs
}
