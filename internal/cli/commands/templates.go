package commands

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/osinfo"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

type field struct {
	Key   string
	Value any
}

type entry struct {
	Name   string
	Fields []field
}

// section is the "install" section of one provider.
type section struct {
	Kind    string
	Block   string
	Entries []entry
}

type document struct {
	Packages []string
	Sections []section
}

const hclTemplate = `{{- if .Packages}}packages = {{lit .Packages}}
{{end}}
{{- range $s := .Sections}}
{{$s.Kind}} "install" {
{{- range $i, $e := $s.Entries}}
{{- if $i}}
{{end}}
  {{$s.Block}} "{{$e.Name}}" {
{{- range $e.Fields}}
    {{.Key}} = {{lit .Value}}
{{- end}}
  }
{{- end}}
}
{{end -}}
`

const tomlTemplate = `{{- if .Packages}}packages = {{lit .Packages}}
{{end}}
{{- range $s := .Sections}}
{{- range $s.Entries}}
[{{$s.Kind}}.install.{{$s.Block}}.{{key .Name}}]
{{- range .Fields}}
{{.Key}} = {{lit .Value}}
{{- end}}
{{end}}
{{- end -}}
`

const yamlTemplate = `{{- if .Packages}}packages: {{lit .Packages}}
{{end}}
{{- range $s := .Sections}}
{{$s.Kind}}:
  install:
    {{$s.Block}}:
{{- range .Entries}}
      {{key .Name}}:{{if not .Fields}} {}{{end}}
{{- range .Fields}}
        {{.Key}}: {{lit .Value}}
{{- end}}
{{- end}}
{{- end}}
`

const hclInventoryTemplate = `{{- range $i, $e := .}}
{{- if $i}}
{{end -}}
server "{{$e.Name}}" {
{{- range $e.Fields}}
  {{.Key}} = {{lit .Value}}
{{- end}}
}
{{end -}}
`

const tomlInventoryTemplate = `{{- range $i, $e := .}}
{{- if $i}}
{{end -}}
[server.{{key $e.Name}}]
{{- range $e.Fields}}
{{.Key}} = {{lit .Value}}
{{- end}}
{{end -}}
`

const yamlInventoryTemplate = `server:
{{- range .}}
  {{key .Name}}:
{{- range .Fields}}
    {{.Key}}: {{lit .Value}}
{{- end}}
{{- end}}
`

var (
	kitfileTemplates = map[string]string{
		manifest.FormatHCL:  hclTemplate,
		manifest.FormatTOML: tomlTemplate,
		manifest.FormatYAML: yamlTemplate,
	}
	inventoryTemplates = map[string]string{
		manifest.FormatHCL:  hclInventoryTemplate,
		manifest.FormatTOML: tomlInventoryTemplate,
		manifest.FormatYAML: yamlInventoryTemplate,
	}
)

func render(templates map[string]string, format string, data any) ([]byte, error) {
	text, ok := templates[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	tmpl, err := template.New(format).Funcs(template.FuncMap{
		"lit": func(v any) string { return literal(format, v) },
		"key": func(k string) string { return tableKey(format, k) },
	}).Parse(text)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// renderKitfile renders a starter Kitfile: the flat packages list when
// packages are given, the default tool set for osID otherwise.
func renderKitfile(format, osID string, packages []string) ([]byte, error) {
	doc := document{Packages: packages}
	if len(packages) == 0 {
		doc = defaultKitfile(osID)
	}
	return render(kitfileTemplates, format, doc)
}

func renderInventory(format string) ([]byte, error) {
	servers := []entry{{Name: "server1", Fields: []field{
		{"host", "127.0.0.1"},
		{"username", "username"},
		{"port", 22},
	}}}
	return render(inventoryTemplates, format, servers)
}

// literal formats v as a value in format. strconv.Quote output is a valid
// string literal in all three formats.
func literal(format string, v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case []string:
		items := make([]string, len(v))
		for i, s := range v {
			items[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		sep := " = "
		if format == manifest.FormatYAML {
			sep = ": "
		}
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + sep + strconv.Quote(v[k])
		}
		return "{ " + strings.Join(items, ", ") + " }"
	}
	panic(fmt.Sprintf("unsupported template value %T", v))
}

func tableKey(format, k string) string {
	if format == manifest.FormatTOML && strings.ContainsAny(k, ". ") {
		return strconv.Quote(k)
	}
	return k
}

// defaultKitfile is the starter tool set. Hooks depend on the operating
// system the file is generated on.
func defaultKitfile(osID string) document {
	provider, _ := osinfo.ProviderFor(osID)
	aptFamily := provider == pkgmanifest.ProviderApt
	darwin := provider == pkgmanifest.ProviderBrew

	minikube := entry{Name: "minikube"}
	if aptFamily {
		minikube.Fields = []field{
			{"preinstall", "sudo apt-get install -y qemu-system libvirt-clients libvirt-daemon-system"},
			{"postinstall", strings.Join([]string{
				`sudo sed -i 's/#user = "root"/user = "root"/g' /etc/libvirt/qemu.conf`,
				`sudo sed -i 's/#group = "root"/group = "root"/g' /etc/libvirt/qemu.conf`,
				`sudo sed -i 's/#dynamic_ownership = 1/dynamic_ownership = 0/g' /etc/libvirt/qemu.conf`,
				`sudo sed -i 's/#remember_owner = 1/remember_owner = 0/g' /etc/libvirt/qemu.conf`,
			}, "\n")},
		}
	}
	brew := section{Kind: "brew", Block: "pkg", Entries: []entry{
		minikube,
		{Name: "tilt"},
		{Name: "kubernetes-cli", Fields: []field{{"version_check", "kubectl"}}},
		{Name: "bat"},
		{Name: "direnv"},
	}}

	blesh := entry{Name: "blesh", Fields: []field{
		{"url", "https://github.com/akinomyoga/ble.sh.git"},
		{"install", "make -C ble.sh install PREFIX=~/.local"},
		{"install_check", "~/.local/share/blesh/ble.sh"},
		{"recursive", true},
		{"depth", 1},
		{"shallow_submodules", true},
		{"postinstall", "echo 'source ~/.local/share/blesh/ble.sh' >> ~/.bashrc"},
	}}
	switch {
	case aptFamily:
		blesh.Fields = append(blesh.Fields, field{"preinstall", "sudo apt-get install -y gawk build-essential"})
	case darwin:
		blesh.Fields = append(blesh.Fields,
			field{"preinstall", "brew install gawk bash"},
			field{"depends_on", []string{pkgmanifest.HomebrewToolName}})
	}
	git := section{Kind: "git", Block: "repo", Entries: []entry{blesh}}

	nix := section{Kind: "nix", Block: "pkg", Entries: []entry{
		{Name: "cachix", Fields: []field{{"flake", "github:cachix/cachix"}}},
		{Name: "devenv", Fields: []field{
			{"flake", "github:cachix/devenv/latest"},
			{"accept_flake_config", true},
			{"preinstall", "echo \"trusted-users = root $USER\" | sudo tee -a /etc/nix/nix.conf\nsudo pkill nix-daemon\ncachix use devenv"},
			{"depends_on", []string{"cachix"}},
			{"version_check", ". " + pkgmanifest.NixDaemonProfile + " && devenv version"},
		}},
	}}

	curl := section{Kind: "curl", Block: "script", Entries: []entry{
		{Name: "devbox", Fields: []field{
			{"url", "https://get.jetpack.io/devbox"},
			{"shell", "bash"},
			{"env", map[string]string{"FORCE": "1"}},
			{"depends_on", []string{pkgmanifest.NixToolName}},
			{"version_check", "devbox version"},
		}},
		{Name: "atuin", Fields: []field{
			{"url", "https://raw.githubusercontent.com/ellie/atuin/main/install.sh"},
			{"shell", "bash"},
			{"version_check", "atuin --version"},
		}},
	}}

	doc := document{Sections: []section{brew, git, nix, curl}}
	if aptFamily {
		var apt []entry
		if strings.EqualFold(osID, "debian") {
			apt = append(apt, entry{Name: "docker", Fields: []field{
				{"gpg_key", "https://download.docker.com/linux/debian/gpg"},
				{"gpg_path", "/etc/apt/keyrings/docker.gpg"},
				{"setup_repository", `echo "deb [arch=$(dpkg --print-architecture) signed-by=/etc/apt/keyrings/docker.gpg] https://download.docker.com/linux/debian $(. /etc/os-release && echo $VERSION_CODENAME) stable" | sudo tee /etc/apt/sources.list.d/docker.list > /dev/null`},
				{"apt_update", true},
				{"packages", []string{"docker-ce", "docker-ce-cli", "containerd.io", "docker-buildx-plugin", "docker-compose-plugin"}},
				{"depends_on", []string{"ca-certificates", "curl", "gnupg"}},
				{"postinstall", "sudo usermod -aG docker $USER"},
			}})
		}
		apt = append(apt, entry{Name: "vscode", Fields: []field{
			{"url", "https://code.visualstudio.com/sha/download?build=stable&os=linux-deb-x64"},
			{"packages", []string{"code"}},
			{"version_check", "code --version"},
		}})
		doc.Sections = append(doc.Sections, section{Kind: "apt", Block: "pkg", Entries: apt})
	}
	return doc
}
