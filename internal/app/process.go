package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/siddhi-labs/citypulse/internal/cli"
	"github.com/siddhi-labs/citypulse/internal/config"
	"github.com/siddhi-labs/citypulse/internal/logging"
	payloadschema "github.com/siddhi-labs/citypulse/schema"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "-", "Path to a JSON array of raw events, or - for stdin")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	payload, err := readInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	events, invalid, err := payloadschema.ValidateBatchPayload(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid batch payload: %v\n", err)
		return 1
	}
	for _, idx := range sortedKeys(invalid) {
		logger.Warn().
			Int("index", idx).
			Err(invalid[idx]).
			Msg("rejected raw event")
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "No valid events in batch")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, pool, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("process command failed to initialize")
		fmt.Fprintf(os.Stderr, "Failed to initialize pipeline: %v\n", err)
		return 1
	}
	defer pool.Close()

	result, err := svc.Process(ctx, events)
	if err != nil {
		logger.Error().Err(err).Int("input", len(events)).Msg("process failed")
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		return 1
	}

	fmt.Printf("process input=%d output=%d dedup_ratio=%.2f rejected=%d\n",
		result.Summary.InputCount, result.Summary.OutputCount, result.Summary.DedupRatio, len(invalid))
	return 0
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func sortedKeys(m map[int]error) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
