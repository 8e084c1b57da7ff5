package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/compliance"
	"github.com/ironsheep/label-compliance/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("label-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("label-mcp - MCP server for product label compliance checks")
			fmt.Println()
			fmt.Println("Usage: label-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  LABEL_RULES_FILE=rules.yaml        Field rules (default: built-in)")
			fmt.Println("  LABEL_OCR_ENGINE=gosseract         gosseract or tesseract-cli")
			fmt.Println("  LABEL_OCR_LANG=eng                 Tesseract language(s)")
			fmt.Println("  LABEL_LOG_LEVEL=debug              Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client.")
			return
		}
	}

	if err := common.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	// Logs go to stderr (stdout is for MCP protocol)
	logger := common.NewLogger(os.Stderr, cfg.Log)
	logger.Debug("starting label-mcp", "version", Version, "built", BuildTime, "commit", GitCommit)

	checker, err := compliance.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "code", common.CodeOf(err), "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(checker, Version, logger)
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
}
