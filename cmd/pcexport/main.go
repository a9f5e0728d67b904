// pcexport converts RSM and glTF scenes into PlayCanvas JSON models.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/internal/assets"
	"github.com/Faultbox/pcexport/internal/config"
	"github.com/Faultbox/pcexport/internal/export"
	"github.com/Faultbox/pcexport/internal/logger"
	"github.com/Faultbox/pcexport/internal/source"
	"github.com/Faultbox/pcexport/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export", "x":
		os.Exit(cmdExport(args))
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pcexport - PlayCanvas model exporter

Usage:
  pcexport <command> [options]

Commands:
  export [flags] <scene> <target.json>  Export a scene to PlayCanvas JSON
  info [flags] <scene>                  Show scene statistics
  list <file.grf> [pattern]             List archive files (optional glob pattern)
  config [flags] [path]                 Write the effective config file

Scenes are .rsm, .gltf or .glb files. With -grf, an .rsm path that is not
on disk is read from the archives.

Examples:
  pcexport export model/wall.rsm out/wall.json
  pcexport export -separate -pretty scene.glb out/scene.json
  pcexport export -grf data.grf data/model/prontera/wall.rsm out/wall.json
  pcexport list data.grf "*.rsm"`)
}

// setup parses a subcommand's flags, loads the config and initialises
// logging. It returns the remaining arguments.
func setup(name string, args []string) (*config.Config, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load("", flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if _, err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, fs.Args()
}

// sourceOptions builds reader options. The returned manager, when not nil,
// must be closed by the caller.
func sourceOptions(cfg *config.Config) (source.Options, *assets.Manager, error) {
	opts := source.Options{
		TextureRoot: cfg.Source.TextureRoot,
		Log:         logger.Named("source"),
	}
	if len(cfg.Source.Archives) == 0 && len(cfg.Source.AssetDirs) == 0 {
		return opts, nil, nil
	}

	am := assets.NewManager()
	for _, a := range cfg.Source.Archives {
		if err := am.AddArchive(a); err != nil {
			am.Close()
			return opts, nil, err
		}
	}
	for _, d := range cfg.Source.AssetDirs {
		if err := am.AddDir(d); err != nil {
			am.Close()
			return opts, nil, err
		}
	}
	opts.Assets = am
	logger.Debug("asset sources ready", zap.Int("sources", am.Len()))
	return opts, am, nil
}

func cmdExport(args []string) int {
	cfg, rest := setup("export", args)
	defer logger.Sync()

	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: pcexport export [flags] <scene> <target.json>")
		return 1
	}
	scenePath, target := rest[0], rest[1]

	opts, am, err := sourceOptions(cfg)
	if err != nil {
		logger.Error("opening asset sources", zap.Error(err))
		return 1
	}
	if am != nil {
		defer am.Close()
	}

	s, err := source.Open(scenePath, opts)
	if err != nil {
		logger.Error("reading scene", zap.String("path", scenePath), zap.Error(err))
		return 1
	}

	paths := export.PathsFor(target, cfg.Export.MeshDir, cfg.Export.MaterialDir, cfg.Export.ImageDir)
	ex := export.New(paths, export.Options{
		SeparateObjects:    cfg.Export.SeparateObjects,
		PrettyJSON:         cfg.Export.PrettyJSON,
		ScaleFromTransform: cfg.Export.ScaleFromTransform,
	}, logger.Named("export"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := ex.Run(ctx, s)
	if report == nil {
		logger.Error("export failed", zap.Error(err))
		return 1
	}

	printReport(report)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Export interrupted")
		}
		return 1
	}
	return 0
}

func printReport(r *export.Report) {
	for _, h := range r.Hierarchies {
		if h.Err != nil {
			fmt.Printf("FAILED %s: %v\n", h.Name, h.Err)
			continue
		}
		fmt.Printf("%s\n", h.Document)
		fmt.Printf("  nodes: %d  meshes: %d  vertices: %d  triangles: %d  materials: %d  textures: %d\n",
			h.Nodes, h.SubMeshes, h.Vertices, h.Triangles, len(h.Materials), len(h.Textures))
	}
	if n := r.Failed(); n > 0 {
		fmt.Printf("\n%d of %d hierarchies failed\n", n, len(r.Hierarchies))
	}
}

func cmdInfo(args []string) {
	cfg, rest := setup("info", args)
	defer logger.Sync()

	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcexport info [flags] <scene>")
		os.Exit(1)
	}

	opts, am, err := sourceOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if am != nil {
		defer am.Close()
	}

	s, err := source.Open(rest[0], opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st := source.Summary(s)
	fmt.Printf("Scene:     %s\n", rest[0])
	fmt.Printf("Objects:   %d (%d selected)\n", st.Objects, st.Selected)
	fmt.Printf("Meshes:    %d\n", st.Meshes)
	fmt.Printf("Faces:     %d\n", st.Faces)
	fmt.Printf("Materials: %d\n", st.Materials)
	fmt.Printf("Textures:  %d\n", st.Textures)
	if len(st.UVLayers) > 0 {
		fmt.Printf("UV layers: %s\n", strings.Join(st.UVLayers, ", "))
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcexport list <file.grf> [pattern]")
		os.Exit(1)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" {
			lower := strings.ToLower(f)
			matched, _ := filepath.Match(pattern, filepath.Base(lower))
			if !matched && !strings.Contains(lower, pattern) {
				continue
			}
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d of %d files matched)\n", count, archive.Len())
	}
}

func cmdConfig(args []string) {
	cfg, rest := setup("config", args)

	var (
		path string
		err  error
	)
	if len(rest) > 0 {
		path = rest[0]
		err = cfg.SaveTo(path)
	} else {
		path, err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}
