package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hashforge/argonbridge/internal/artifact"
	"github.com/hashforge/argonbridge/internal/config"
	"github.com/hashforge/argonbridge/internal/wasm"
	"github.com/hashforge/argonbridge/pkg/argon2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// passwordEnvVar lets scripts supply the password without a terminal.
const passwordEnvVar = "ARGONBRIDGE_PASSWORD"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}

	var logger *zap.Logger
	if level == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting argonbridge",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	ctx := context.Background()

	hasher, cleanup, err := newHasher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize hasher", zap.Error(err))
	}
	defer cleanup()

	switch flag.Arg(0) {
	case "hash":
		runHash(ctx, cfg, logger, hasher)
	case "verify":
		runVerify(ctx, logger, hasher, flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  argonbridge [flags] hash             Hash a password read from the terminal
  argonbridge [flags] verify <digest>  Verify a password against a PHC digest

Flags:
`)
	flag.PrintDefaults()
}

// newHasher selects the engine: the wasm bridge when an artifact directory
// is configured, the native in-process engine otherwise.
func newHasher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (argon2.Hasher, func(), error) {
	if cfg.ArtifactDir == "" {
		logger.Info("Using native engine")
		return argon2.NewNative(), func() {}, nil
	}

	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages: cfg.Wasm.MemoryPages,
		CacheDir:    cfg.Wasm.CacheDir,
		Debug:       cfg.Wasm.Debug,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { runtime.Close(ctx) }

	art, err := artifact.NewLoader(runtime, logger).Load(ctx, cfg.ArtifactDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	instance, err := wasm.NewInstance(ctx, runtime, art.Compiled, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("Using wasm engine",
		zap.String("artifact", art.Name()),
		zap.String("artifact_version", art.Version()),
	)

	return wasm.NewBridge(instance, logger), cleanup, nil
}

func runHash(ctx context.Context, cfg *config.Config, logger *zap.Logger, hasher argon2.Hasher) {
	password, err := readPassword("Password: ")
	if err != nil {
		logger.Fatal("Failed to read password", zap.Error(err))
	}

	salt, err := argon2.RandomSalt(cfg.Hash.SaltLen)
	if err != nil {
		logger.Fatal("Failed to generate salt", zap.Error(err))
	}

	params := &argon2.Params{
		Algorithm: argon2.Algorithm(cfg.Hash.Algorithm),
		Memory:    cfg.Hash.Memory,
		Time:      cfg.Hash.Time,
		Threads:   cfg.Hash.Threads,
	}

	digest, err := hasher.Hash(ctx, password, salt, params)
	if err != nil {
		logger.Fatal("Hashing failed", zap.Error(err))
	}

	fmt.Println(digest)
}

func runVerify(ctx context.Context, logger *zap.Logger, hasher argon2.Hasher, digest string) {
	if digest == "" {
		usage()
		os.Exit(2)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		logger.Fatal("Failed to read password", zap.Error(err))
	}

	ok, err := hasher.Verify(ctx, digest, password, nil)
	if err != nil {
		logger.Fatal("Verification failed", zap.Error(err))
	}

	if !ok {
		fmt.Println("no match")
		os.Exit(1)
	}
	fmt.Println("match")
}

// readPassword reads a password without echo from the terminal, falling
// back to the ARGONBRIDGE_PASSWORD environment variable when stdin is not
// a terminal.
func readPassword(prompt string) ([]byte, error) {
	if envPass := os.Getenv(passwordEnvVar); envPass != "" {
		return []byte(envPass), nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, fmt.Errorf("stdin is not a terminal; set %s", passwordEnvVar)
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}
