// Command hexforge generates and validates hex-grid tile worlds from
// natural-language requests.
//
// Usage:
//
//	hexforge generate <request...>   plan and build a world, then save it
//	hexforge validate <world-id>     re-check a stored world's edges
//	hexforge list                    list stored worlds
//
// Configuration comes from the environment: ANTHROPIC_API_KEY (required for
// generate), HEXFORGE_PACK (asset pack YAML path), HEXFORGE_DB (SQLite
// path), HEXFORGE_MAX_TILES, HEXFORGE_SEED.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/llm"
	"github.com/talgya/hexforge/internal/orchestrate"
	"github.com/talgya/hexforge/internal/planner"
	"github.com/talgya/hexforge/internal/store"
	"github.com/talgya/hexforge/internal/terrain"
	"github.com/talgya/hexforge/internal/validate"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "list":
		err = runList()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hexforge generate <request...> | validate <world-id> | list")
}

func runGenerate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("generate needs a request, e.g. hexforge generate a village by a river")
	}
	request := strings.Join(args, " ")

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	client := llm.NewClient(apiKey)
	if !client.Enabled() {
		return fmt.Errorf("ANTHROPIC_API_KEY is required for generate")
	}

	idx, err := assetpack.LoadFile(envOrDefault("HEXFORGE_PACK", "packs/meadow.yaml"))
	if err != nil {
		return fmt.Errorf("load asset pack: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := orchestrate.DefaultConfig()
	cfg.MaxTiles = envIntOrDefault("HEXFORGE_MAX_TILES", cfg.MaxTiles)
	seed := int64(envIntOrDefault("HEXFORGE_SEED", 42))
	elev := terrain.NewField(seed, 0, 5)

	o := orchestrate.New(
		planner.New(llm.NewPlanSource(client)),
		llm.NewSuggester(client),
		idx,
		elev,
		cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("generating world", "pack", idx.Pack().ID, "max_tiles", cfg.MaxTiles)
	result, err := o.Run(ctx, request, nil)
	if err != nil {
		return err
	}

	id, err := db.SaveWorld(result.World, result.Plan.Theme, result.Plan.Theme)
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}

	summary, err := validate.World(result.World, idx)
	if err != nil {
		return fmt.Errorf("final validation: %w", err)
	}

	fmt.Printf("\nWorld %q saved as %s\n", result.Plan.Theme, id)
	fmt.Printf("  %s\n", result.Track.Summary())
	fmt.Printf("  edges: %d valid, %d invalid\n", summary.ValidEdges, summary.InvalidEdges)
	for _, td := range result.Plan.Todos {
		fmt.Printf("  [%s] %s\n", td.Status, td.Description)
	}
	return nil
}

func runValidate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("validate needs exactly one world id")
	}

	idx, err := assetpack.LoadFile(envOrDefault("HEXFORGE_PACK", "packs/meadow.yaml"))
	if err != nil {
		return fmt.Errorf("load asset pack: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	w, err := db.LoadWorld(args[0])
	if err != nil {
		return err
	}

	summary, err := validate.World(w, idx)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d edges valid, %d invalid\n",
		args[0], summary.ValidEdges, summary.InvalidEdges)
	for _, msg := range summary.Errors {
		fmt.Printf("  %s\n", msg)
	}
	if summary.InvalidEdges > 0 {
		os.Exit(1)
	}
	return nil
}

func runList() error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListWorlds()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no worlds stored yet")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  %-24s  pack=%s  %s tiles  %s\n",
			r.ID, r.Name, r.PackID, humanize.Comma(int64(r.Tiles)), humanize.Time(r.CreatedAt))
	}
	return nil
}

func openStore() (*store.Store, error) {
	path := envOrDefault("HEXFORGE_DB", "data/hexforge.db")
	os.MkdirAll(filepath.Dir(path), 0755)
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
