package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kwv/jigsolve/jigsaw"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppRunner is what run dispatches the command line to
type AppRunner interface {
	ApplyOptions(opts AppOptions)
	RunMatch()
	RunSolve()
	RunRender()
	RunService()
}

// run parses args and starts the selected mode
func run(args []string, out io.Writer, app AppRunner) error {
	fs := flag.NewFlagSet("jigsolve", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.PiecesFile, "pieces", "pieces.json", "Path to the piece manifest")
	fs.BoolVar(&opts.MatchOnly, "match", false, "Build the match catalog, print a summary and exit")
	fs.BoolVar(&opts.SolveOnly, "solve", false, "Solve and print every layout as a text grid")
	fs.BoolVar(&opts.RenderOnly, "render", false, "Solve and write the best layout to --output")
	fs.StringVar(&opts.RenderFormat, "format", FormatRaster, "Render format: raster, svg, vector or json")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file for --render (default solution.png/.svg/.json)")
	fs.StringVar(&opts.CatalogCache, "catalog-cache", jigsaw.DefaultCatalogCachePath, "Path to match catalog cache file")
	fs.IntVar(&opts.Seed, "seed", -1, "Seed piece id (default from config)")
	fs.IntVar(&opts.Workers, "workers", 0, "Overlap scoring workers (default from config)")
	fs.StringVar(&opts.DumpDir, "dump-dir", "", "Write candidate listings and seam images here")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Accept commands and publish progress over MQTT")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for serving solutions")
	fs.IntVar(&opts.HttpPort, "http-port", 0, "HTTP server port (default from config, 4040)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "jigsolve version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.MatchOnly:
		app.RunMatch()
	case opts.SolveOnly:
		app.RunSolve()
	case opts.RenderOnly:
		app.RunRender()
	case opts.MqttMode || opts.HttpMode:
		app.RunService()
	default:
		fmt.Fprintln(out, "Use --match to build the match catalog")
		fmt.Fprintln(out, "Use --solve to assemble the puzzle and print the layouts")
		fmt.Fprintln(out, "Use --render to write the best layout (--format raster|svg|vector|json)")
		fmt.Fprintln(out, "Use --mqtt and/or --http to run as a service")
		fmt.Fprintln(out, "\nConfiguration:")
		fmt.Fprintln(out, "  config.yaml - matching, solver, render, MQTT and HTTP settings")
		fmt.Fprintln(out, "  pieces.json - piece manifest (masks, images, edges)")
		fmt.Fprintln(out, "  .catalog-cache.json - pruned match catalog (cached)")
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
}
