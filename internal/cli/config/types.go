// Package config provides configuration management for the sync CLI.
// Values are merged from defaults, an optional eppo-sync.yaml file,
// EPPO_-prefixed environment variables, and command-line flags.
package config

// Defaults applied before any other configuration source.
const (
	DefaultProjectDir   = "."
	DefaultManifestPath = "target/manifest.json"
	DefaultBaseURL      = "https://eppo.cloud"
	DefaultOutput       = "text"
)

// Config is the merged CLI configuration.
type Config struct {
	// ProjectDir is the dbt project root containing the YAML declarations
	ProjectDir string `koanf:"project_dir"`
	// ManifestPath points at the compiled manifest.json
	ManifestPath string `koanf:"manifest_path"`
	// APIKey authenticates against the sync API (EPPO_API_KEY)
	APIKey string `koanf:"api_key"`
	// BaseURL is the sync API base URL
	BaseURL string `koanf:"base_url"`
	// SyncTag identifies sync runs; empty means a timestamped default
	SyncTag string `koanf:"sync_tag"`
	// Verbose enables debug logging
	Verbose bool `koanf:"verbose"`
	// Output selects the rendering mode (text|json)
	Output string `koanf:"output"`
}
