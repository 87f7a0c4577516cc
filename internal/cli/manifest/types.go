package manifest

import pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"

type Configuration = pkgmanifest.Configuration
type Inventory = pkgmanifest.Inventory
type Server = pkgmanifest.Server
type ConfigError = pkgmanifest.ConfigError

const (
	FormatHCL  = "hcl"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

const (
	EncodingZstd    = "zst"
	EncodingXz      = "xz"
	EncodingTarGzip = "tar.gz"
	EncodingTarXz   = "tar.xz"
)
