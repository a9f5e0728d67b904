package config

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test export defaults
	if cfg.Export.MeshDir != "./Meshes" {
		t.Errorf("expected mesh dir ./Meshes, got %s", cfg.Export.MeshDir)
	}
	if cfg.Export.MaterialDir != "./Materials" {
		t.Errorf("expected material dir ./Materials, got %s", cfg.Export.MaterialDir)
	}
	if cfg.Export.ImageDir != "./Images" {
		t.Errorf("expected image dir ./Images, got %s", cfg.Export.ImageDir)
	}
	if cfg.Export.SeparateObjects {
		t.Error("expected separate_objects to be false by default")
	}
	if cfg.Export.PrettyJSON {
		t.Error("expected pretty_json to be false by default")
	}
	if cfg.Export.ScaleFromTransform {
		t.Error("expected scale_from_transform to be false by default")
	}

	// Test source defaults
	if cfg.Source.TextureRoot != "" {
		t.Errorf("expected empty texture root, got %s", cfg.Source.TextureRoot)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  mesh_dir: "./out/meshes"
  separate_objects: true
  pretty_json: true

source:
  texture_root: "/data/texture"
  archives:
    - "data.grf"
    - "patch.grf"

logging:
  level: "debug"
  log_file: "export.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Export.MeshDir != "./out/meshes" {
		t.Errorf("expected mesh dir ./out/meshes, got %s", cfg.Export.MeshDir)
	}
	if !cfg.Export.SeparateObjects {
		t.Error("expected separate_objects to be true")
	}
	if !cfg.Export.PrettyJSON {
		t.Error("expected pretty_json to be true")
	}
	if cfg.Source.TextureRoot != "/data/texture" {
		t.Errorf("expected texture root /data/texture, got %s", cfg.Source.TextureRoot)
	}
	if !reflect.DeepEqual(cfg.Source.Archives, []string{"data.grf", "patch.grf"}) {
		t.Errorf("unexpected archives %v", cfg.Source.Archives)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "export.log" {
		t.Errorf("expected log file export.log, got %s", cfg.Logging.LogFile)
	}

	// Keys missing from the file keep their defaults
	if cfg.Export.MaterialDir != "./Materials" {
		t.Errorf("expected default material dir, got %s", cfg.Export.MaterialDir)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("export: [not, a, map"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadMissingExplicit(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working dir: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer os.Chdir(wd)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected no config file, got %s", path)
	}

	if err := os.WriteFile(FileName, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if path := findConfigFile(); path != "./"+FileName {
		t.Errorf("expected ./%s, got %s", FileName, path)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pcexport.yaml")

	cfg := Default()
	cfg.Export.PrettyJSON = true
	cfg.Source.TextureRoot = "/data/texture"
	cfg.Source.Archives = []string{"data.grf"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("reloaded config differs: got %+v, want %+v", *loaded, *cfg)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "no flags",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg, Default()) {
					t.Errorf("expected defaults, got %+v", *cfg)
				}
			},
		},
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "layout flags",
			args: []string{"-mesh-dir", "m", "-material-dir", "mat", "-image-dir", "img"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.MeshDir != "m" || cfg.Export.MaterialDir != "mat" || cfg.Export.ImageDir != "img" {
					t.Errorf("unexpected dirs: %+v", cfg.Export)
				}
			},
		},
		{
			name: "boolean flags",
			args: []string{"-separate", "-pretty", "-scale-from-transform"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.SeparateObjects {
					t.Error("expected separate_objects to be true")
				}
				if !cfg.Export.PrettyJSON {
					t.Error("expected pretty_json to be true")
				}
				if !cfg.Export.ScaleFromTransform {
					t.Error("expected scale_from_transform to be true")
				}
			},
		},
		{
			name: "texture root",
			args: []string{"-texture-root", "/data/texture"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Source.TextureRoot != "/data/texture" {
					t.Errorf("expected texture root /data/texture, got %s", cfg.Source.TextureRoot)
				}
			},
		},
		{
			name: "archive list",
			args: []string{"-grf", "data.grf, patch.grf,"},
			verify: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg.Source.Archives, []string{"data.grf", "patch.grf"}) {
					t.Errorf("unexpected archives %v", cfg.Source.Archives)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			cfg := Default()
			flags.Apply(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  pretty_json: true
  mesh_dir: "./file-meshes"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-pretty=false"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	// Load config
	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// pretty_json should be from flag (false), not file (true)
	if cfg.Export.PrettyJSON {
		t.Error("expected pretty_json false from flag")
	}

	// mesh_dir should be from file since no flag override
	if cfg.Export.MeshDir != "./file-meshes" {
		t.Errorf("expected mesh dir from file, got %s", cfg.Export.MeshDir)
	}
}
