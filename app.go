package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/kwv/jigsolve/jigsaw"
)

// AppOptions carries the parsed command line
type AppOptions struct {
	ConfigFile   string
	PiecesFile   string
	CatalogCache string
	OutputFile   string
	RenderFormat string
	DumpDir      string
	Seed         int
	Workers      int
	HttpPort     int
	MatchOnly    bool
	SolveOnly    bool
	RenderOnly   bool
	MqttMode     bool
	HttpMode     bool
}

// Render formats accepted by -format
const (
	FormatRaster = "raster"
	FormatSVG    = "svg"
	FormatVector = "vector"
	FormatJSON   = "json"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *jigsaw.Config
	Session    *jigsaw.Session
	MQTTClient *jigsaw.MQTTClient
	Publisher  *jigsaw.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	PiecesFile   string
	CatalogCache string
	OutputFile   string
	RenderFormat string
	DumpDir      string
	Seed         int
	Workers      int
	HttpPort     int
	MqttMode     bool
	HttpMode     bool

	catalogReady atomic.Bool
	running      atomic.Bool // a background match or solve is in flight
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		ConfigFile:   "config.yaml",
		PiecesFile:   "pieces.json",
		CatalogCache: jigsaw.DefaultCatalogCachePath,
		RenderFormat: FormatRaster,
		Seed:         -1,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.PiecesFile = opts.PiecesFile
	a.CatalogCache = opts.CatalogCache
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.DumpDir = opts.DumpDir
	a.Seed = opts.Seed
	a.Workers = opts.Workers
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, then layers environment and flag overrides on top
func (a *App) loadConfig() (*jigsaw.Config, error) {
	var config *jigsaw.Config
	if _, err := os.Stat(a.ConfigFile); err == nil {
		config, err = jigsaw.LoadConfig(a.ConfigFile)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded config from %s", a.ConfigFile)
	} else {
		log.Printf("No config at %s, using defaults", a.ConfigFile)
		config = jigsaw.DefaultConfig()
	}
	config.ApplyEnv()

	if a.Seed >= 0 {
		config.Solver.Seed = a.Seed
	}
	if a.Workers > 0 {
		config.Matching.Workers = a.Workers
	}
	if a.DumpDir != "" {
		config.Matching.DumpDir = a.DumpDir
	}
	if a.HttpPort > 0 {
		config.HTTP.Port = a.HttpPort
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Init loads the configuration and the pieces into a fresh session
func (a *App) Init() error {
	config, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = config

	pieces, err := jigsaw.LoadPieces(a.PiecesFile)
	if err != nil {
		return fmt.Errorf("loading pieces from %s: %w", a.PiecesFile, err)
	}
	log.Printf("Loaded %d pieces from %s", len(pieces), a.PiecesFile)
	a.Session = jigsaw.NewSession(pieces)
	a.catalogReady.Store(false)
	return nil
}

// Match builds the match catalog and stores it in the catalog cache
func (a *App) Match(ctx context.Context) (*jigsaw.MatchReport, error) {
	report, err := a.Session.Match(ctx, jigsaw.NewMatcher(a.Config.MatcherConfig()))
	if err != nil {
		return nil, err
	}
	a.catalogReady.Store(true)
	if a.CatalogCache != "" {
		cat := jigsaw.CatalogFromPieces(a.Session.Pieces(), report)
		if err := jigsaw.SaveCatalog(a.CatalogCache, cat); err != nil {
			log.Printf("Warning: failed to save catalog cache: %v", err)
		} else {
			log.Printf("Saved catalog cache to %s", a.CatalogCache)
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.PublishReport(report); err != nil {
			log.Printf("[MQTT] Error publishing matching report: %v", err)
		}
	}
	return report, nil
}

// loadCachedCatalog applies the catalog cache when it is newer than the
// manifest, was built with the configured matching settings and fits the
// pieces. It reports whether the cache was used.
func (a *App) loadCachedCatalog() bool {
	if a.CatalogCache == "" {
		return false
	}
	cat, err := jigsaw.LoadCatalog(a.CatalogCache)
	if err != nil {
		log.Printf("Warning: failed to load catalog cache %s: %v", a.CatalogCache, err)
		return false
	}
	if cat == nil {
		return false
	}
	if info, err := os.Stat(a.PiecesFile); err == nil && cat.IsStale(info.ModTime().Truncate(time.Second)) {
		log.Printf("Catalog cache %s predates %s, rematching", a.CatalogCache, a.PiecesFile)
		return false
	}
	if err := cat.CheckSettings(jigsaw.NewMatcher(a.Config.MatcherConfig()).Settings()); err != nil {
		log.Printf("Catalog cache %s does not fit the matching config, rematching: %v", a.CatalogCache, err)
		return false
	}
	if err := cat.Apply(a.Session.Pieces()); err != nil {
		log.Printf("Warning: ignoring catalog cache: %v", err)
		return false
	}
	log.Printf("Loaded catalog cache from %s", a.CatalogCache)
	a.catalogReady.Store(true)
	return true
}

// Solve assembles the pieces, matching first unless a usable catalog is cached
func (a *App) Solve(ctx context.Context) (*jigsaw.SolutionSet, error) {
	if !a.catalogReady.Load() && !a.loadCachedCatalog() {
		if _, err := a.Match(ctx); err != nil {
			return nil, fmt.Errorf("matching: %w", err)
		}
	}

	set, err := a.Session.Solve(a.Config.NewSolver())
	if err != nil {
		return nil, err
	}
	if a.Publisher != nil {
		if err := a.Publisher.PublishSolution(set, len(a.Session.Pieces())); err != nil {
			log.Printf("[MQTT] Error publishing solution: %v", err)
		}
	}
	return set, nil
}

// solutionDocument is the JSON form of a solution set
type solutionDocument struct {
	Count   int              `json:"count"`
	Total   int              `json:"total"`
	Layouts []layoutDocument `json:"layouts"`
}

type layoutDocument struct {
	Cost       float64            `json:"cost"`
	Placements []jigsaw.Placement `json:"placements"`
	Text       string             `json:"text"`
}

func newSolutionDocument(set *jigsaw.SolutionSet, total int) solutionDocument {
	doc := solutionDocument{Count: set.Count, Total: total, Layouts: []layoutDocument{}}
	for i, g := range set.Grids {
		doc.Layouts = append(doc.Layouts, layoutDocument{
			Cost:       set.Costs[i],
			Placements: g.Placements(),
			Text:       g.String(),
		})
	}
	return doc
}

// writeSolution encodes the best layout of set in the given format
func writeSolution(w io.Writer, format string, config *jigsaw.Config, pieces []*jigsaw.Piece, set *jigsaw.SolutionSet) error {
	best := set.Best()
	if best == nil {
		return fmt.Errorf("solution has no layout")
	}
	switch format {
	case FormatRaster, "":
		return config.NewSolutionRenderer(pieces, best).WritePNG(w)
	case FormatSVG:
		return config.NewLayoutRenderer(pieces, best).RenderToSVG(w)
	case FormatVector:
		return config.NewLayoutRenderer(pieces, best).RenderToPNG(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newSolutionDocument(set, len(pieces)))
	}
	return fmt.Errorf("unknown format %q (use raster, svg, vector or json)", format)
}

// defaultOutput picks an output file name for the render format
func defaultOutput(format string) string {
	switch format {
	case FormatSVG:
		return "solution.svg"
	case FormatJSON:
		return "solution.json"
	}
	return "solution.png"
}

// saveSolution writes the solution to a file
func (a *App) saveSolution(set *jigsaw.SolutionSet) (string, error) {
	path := a.OutputFile
	if path == "" {
		path = defaultOutput(a.RenderFormat)
	}
	if a.RenderFormat == FormatRaster || a.RenderFormat == "" {
		best := set.Best()
		if best == nil {
			return "", fmt.Errorf("solution has no layout")
		}
		if err := a.Config.NewSolutionRenderer(a.Session.Pieces(), best).SavePNG(path); err != nil {
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		return path, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := writeSolution(f, a.RenderFormat, a.Config, a.Session.Pieces(), set); err != nil {
		return "", err
	}
	return path, nil
}

func printReport(report *jigsaw.MatchReport) {
	fmt.Println("\nMatching")
	fmt.Println("========")
	fmt.Printf("Pieces:        %d\n", report.Pieces)
	fmt.Printf("Candidates:    %d\n", report.Candidates)
	fmt.Printf("After coarse:  %d (cutoff %.4f)\n", report.AfterCoarse, report.CoarseCutoff)
	fmt.Printf("After fine:    %d (cutoff %.1f)\n", report.AfterFine, report.FineCutoff)
	fmt.Printf("Mean cost:     %.4f, mean score %.1f\n", report.MeanCost, report.MeanScore)
	fmt.Printf("Matched pairs: %d\n", report.Pairs)
	fmt.Printf("Took:          %s\n", report.Duration)
}

func printSolution(set *jigsaw.SolutionSet, total int) {
	fmt.Println("\nSolution")
	fmt.Println("========")
	fmt.Printf("Placed %d/%d pieces, %d distinct layout(s)\n", set.Count, total, len(set.Grids))
	for i, g := range set.Grids {
		fmt.Printf("\nLayout %d (cost %.4f):\n%s", i+1, set.Costs[i], g.String())
	}
}

// RunMatch builds the match catalog and prints a summary
func (a *App) RunMatch() {
	if err := a.Init(); err != nil {
		log.Fatalf("%v", err)
	}
	report, err := a.Match(context.Background())
	if err != nil {
		log.Fatalf("Matching failed: %v", err)
	}
	printReport(report)
}

// RunSolve assembles the pieces and prints every layout as a text grid
func (a *App) RunSolve() {
	if err := a.Init(); err != nil {
		log.Fatalf("%v", err)
	}
	set, err := a.Solve(context.Background())
	if err != nil {
		if errors.Is(err, jigsaw.ErrTooManySolutions) {
			log.Fatalf("Solving failed: %v (tighten matching.fineCut)", err)
		}
		log.Fatalf("Solving failed: %v", err)
	}
	printSolution(set, len(a.Session.Pieces()))
}

// RunRender solves and writes the best layout in the selected format
func (a *App) RunRender() {
	if err := a.Init(); err != nil {
		log.Fatalf("%v", err)
	}
	set, err := a.Solve(context.Background())
	if err != nil {
		log.Fatalf("Solving failed: %v", err)
	}
	path, err := a.saveSolution(set)
	if err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}
	fmt.Printf("Placed %d/%d pieces, wrote %s\n", set.Count, len(a.Session.Pieces()), path)
}

// HandleCommand runs a command received over MQTT: match, solve or status
func (a *App) HandleCommand(command string) {
	ctx := context.Background()
	switch command {
	case "match":
		if _, err := a.Match(ctx); err != nil {
			log.Printf("[MQTT] match command failed: %v", err)
		}
	case "solve":
		if _, err := a.Solve(ctx); err != nil {
			log.Printf("[MQTT] solve command failed: %v", err)
		}
	case "status":
		if a.Publisher == nil {
			return
		}
		if set := a.Session.Solution(); set != nil {
			if err := a.Publisher.PublishSolution(set, len(a.Session.Pieces())); err != nil {
				log.Printf("[MQTT] Error publishing status: %v", err)
			}
		}
	default:
		log.Printf("[MQTT] unknown command %q (want match, solve or status)", command)
	}
}

// StartCommand runs a match or solve command in the background. The slot is
// taken before returning, so a second call fails with ErrBusy until the
// first run is over. Other commands run inline.
func (a *App) StartCommand(command string) error {
	if command != "match" && command != "solve" {
		a.HandleCommand(command)
		return nil
	}
	if !a.running.CompareAndSwap(false, true) {
		return jigsaw.ErrBusy
	}
	go func() {
		defer a.running.Store(false)
		a.HandleCommand(command)
	}()
	return nil
}

// RunService serves results over HTTP and accepts commands over MQTT
func (a *App) RunService() {
	fmt.Println("Starting jigsolve service...")

	if err := a.Init(); err != nil {
		log.Fatalf("%v", err)
	}
	config := a.Config

	if a.MqttMode {
		mqttClient, err := jigsaw.InitMQTT(config, func(command string) {
			if err := a.StartCommand(command); err != nil {
				log.Printf("[MQTT] %s command ignored: %v", command, err)
			}
		})
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		if mqttClient == nil {
			log.Fatal("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = mqttClient
		a.Publisher = jigsaw.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		a.Session.OnProgress = func(p jigsaw.Progress) {
			if err := a.Publisher.PublishProgress(p); err != nil {
				log.Printf("[MQTT] Error publishing progress: %v", err)
			}
		}
		fmt.Println("MQTT publisher initialized")
	}

	// a cached catalog makes the first solve cheap; a stale one is ignored
	a.loadCachedCatalog()

	if a.HttpMode {
		httpServer := newHTTPServer(a.Session, config, a.StartCommand)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", config.HTTP.Port)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
			log.Printf("[HTTP] Server stopped unexpectedly")
		}()
	}

	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MqttMode {
		prefix := config.MQTT.PublishPrefix
		fmt.Println("\nMQTT:")
		fmt.Printf("  Commands:   %s (match, solve, status)\n", jigsaw.CommandTopic(prefix))
		fmt.Printf("  Progress:   %s/progress\n", prefix)
		fmt.Printf("  Solution:   %s/solution\n", prefix)
		fmt.Printf("  Matching:   %s/matching\n", prefix)
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", config.HTTP.Port)
		fmt.Println("  GET  /health         - Health check")
		fmt.Println("  GET  /status         - Session state and progress")
		fmt.Println("  GET  /solution.png   - Composited best layout")
		fmt.Println("  GET  /solution.svg   - Layout diagram")
		fmt.Println("  GET  /solution.json  - Every layout as placements")
		fmt.Println("  GET  /matches.json   - Pruned match catalog")
		fmt.Println("  POST /match          - Rebuild the match catalog in the background")
		fmt.Println("  POST /solve          - Start a solve in the background")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
}
