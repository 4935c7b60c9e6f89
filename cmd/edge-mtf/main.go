package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ironsheep/edge-mtf-mcp/internal/config"
	"github.com/ironsheep/edge-mtf-mcp/internal/logging"
	"github.com/ironsheep/edge-mtf-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigPath = "edge-mtf.yaml"

func main() {
	// A .env file is optional; real environment variables take precedence.
	envLoaded := godotenv.Load() == nil

	configPath := os.Getenv("EDGE_MTF_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	opts, err := parseArgs(os.Args[1:], configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	configPath = opts.configPath

	switch {
	case opts.version:
		fmt.Printf("edge-mtf-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case opts.help:
		printHelp()
		return
	case opts.writeConfig:
		if err := config.SaveConfig(config.DefaultConfig(), configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", configPath)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if level := os.Getenv("EDGE_MTF_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	// Logs go to stderr (stdout is for MCP protocol)
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		os.Exit(1)
	}

	logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("config", configPath).
		Bool("dotenv", envLoaded).
		Msg("edge MTF server starting")

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create server")
	}
	if err := srv.Run(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// cliOptions holds the parsed command line. Actions run after parsing so
// flag order does not matter.
type cliOptions struct {
	configPath  string
	version     bool
	help        bool
	writeConfig bool
}

func parseArgs(args []string, configPath string) (cliOptions, error) {
	opts := cliOptions{configPath: configPath}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			opts.version = true
		case "--help", "-h", "help":
			opts.help = true
		case "--config", "-c":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a file path", args[i])
			}
			i++
			opts.configPath = args[i]
		case "--write-config":
			opts.writeConfig = true
		default:
			return opts, fmt.Errorf("unknown option %q (see --help)", args[i])
		}
	}
	return opts, nil
}

func printHelp() {
	fmt.Println("edge-mtf-mcp - MCP server for slanted-edge MTF measurement")
	fmt.Println()
	fmt.Println("Usage: edge-mtf-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println("  --config, -c FILE    YAML configuration file (default edge-mtf.yaml)")
	fmt.Println("  --write-config       Write the default configuration to the config path and exit")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  EDGE_MTF_CONFIG=FILE         Configuration file when --config is not given")
	fmt.Println("  EDGE_MTF_LOG_LEVEL=debug     Override the configured log level")
	fmt.Println("Both may also be set in a .env file in the working directory.")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
