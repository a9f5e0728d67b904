// Package config handles exporter configuration loading and management.
package config

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds output layout and formatting settings. Directories are
// relative to the target file's directory.
type ExportConfig struct {
	MeshDir            string `yaml:"mesh_dir"`
	MaterialDir        string `yaml:"material_dir"`
	ImageDir           string `yaml:"image_dir"`
	SeparateObjects    bool   `yaml:"separate_objects"`
	PrettyJSON         bool   `yaml:"pretty_json"`
	ScaleFromTransform bool   `yaml:"scale_from_transform"`
}

// SourceConfig holds scene reader settings.
type SourceConfig struct {
	TextureRoot string   `yaml:"texture_root"`         // RSM texture directory
	Archives    []string `yaml:"archives,omitempty"`   // GRF archives, later ones win
	AssetDirs   []string `yaml:"asset_dirs,omitempty"` // override archive contents
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			MeshDir:     "./Meshes",
			MaterialDir: "./Materials",
			ImageDir:    "./Images",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
