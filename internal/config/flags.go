package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides of a subcommand.
type Flags struct {
	fs *flag.FlagSet

	config      *string
	debug       *bool
	logFile     *string
	separate    *bool
	pretty      *bool
	scaleXform  *bool
	meshDir     *string
	materialDir *string
	imageDir    *string
	textureRoot *string
	archives    *string
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:          fs,
		config:      fs.String("config", "", "Path to config file"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		logFile:     fs.String("log-file", "", "Also write logs to this file"),
		separate:    fs.Bool("separate", false, "Write one document per top-level object"),
		pretty:      fs.Bool("pretty", false, "Indent JSON output"),
		scaleXform:  fs.Bool("scale-from-transform", false, "Take node scale from the local transform"),
		meshDir:     fs.String("mesh-dir", "", "Mesh directory, relative to the target"),
		materialDir: fs.String("material-dir", "", "Material directory, relative to the target"),
		imageDir:    fs.String("image-dir", "", "Image directory, relative to the target"),
		textureRoot: fs.String("texture-root", "", "Directory RSM texture paths are resolved against"),
		archives:    fs.String("grf", "", "Comma-separated GRF archives to read models and textures from"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	return *f.config
}

// Apply applies the flags that were set on the command line to cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if *f.debug {
				cfg.Logging.Level = "debug"
			}
		case "log-file":
			cfg.Logging.LogFile = *f.logFile
		case "separate":
			cfg.Export.SeparateObjects = *f.separate
		case "pretty":
			cfg.Export.PrettyJSON = *f.pretty
		case "scale-from-transform":
			cfg.Export.ScaleFromTransform = *f.scaleXform
		case "mesh-dir":
			cfg.Export.MeshDir = *f.meshDir
		case "material-dir":
			cfg.Export.MaterialDir = *f.materialDir
		case "image-dir":
			cfg.Export.ImageDir = *f.imageDir
		case "texture-root":
			cfg.Source.TextureRoot = *f.textureRoot
		case "grf":
			cfg.Source.Archives = splitList(*f.archives)
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
