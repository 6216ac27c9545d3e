package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/pubforms"
	"github.com/eringen/pubforms/logging"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "init":
		dir := "."
		if len(os.Args) > 2 {
			dir = os.Args[2]
		}
		if err := runInit(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("pubforms %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	env := flags.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flags.String("config", "./config.toml", "path for the TOML config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil {
		log.Debugln("no .env file found")
	}

	cfg, err := pubforms.LoadConfig(*env, *configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Params{
		Level:       cfg.LogLevel,
		JSON:        cfg.LogFormatJSON,
		File:        cfg.LogsPath,
		Stdout:      cfg.LogToStdout,
		Environment: cfg.Environment,
		Sentry: logging.SentryParams{
			Enabled:    cfg.SentryEnabled,
			DSN:        os.Getenv("SENTRY_DSN"),
			ServerName: "pubforms",
		},
	})
	log.Warnf("---->> running in [%s] environment", cfg.Environment)

	app := pubforms.New(cfg, pubforms.DefaultViews())
	defer func() {
		if err := app.Close(); err != nil {
			log.Errorf("close app: %s", err)
		}
	}()

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	chErr := make(chan error, 1)
	go func() {
		chErr <- app.Start()
	}()

	select {
	case err := <-chErr:
		return err
	case receivedSig := <-chOsInterrupt:
		log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %s", err)
	}
	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
	return nil
}

func printUsage() {
	fmt.Println(`pubforms - blog creation and sign-up forms for a publishing backend

Usage:
  pubforms <command> [arguments]

Commands:
  serve [-env E] [-config F]   Start the web server
  init [dir]                   Write a starter config.toml and .env
  version                      Print the pubforms version
  help                         Show this help message

Examples:
  pubforms init .
  pubforms serve -env production -config /etc/pubforms/config.toml`)
}
