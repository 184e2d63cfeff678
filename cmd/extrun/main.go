// Package main is the entry point for extrun, the headless extension
// runner. It loads one extension against a scripted replay host,
// optionally calls a function, and prints the UI transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/extkit"
	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/replay"
	"github.com/dshills/extkit/settings"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	workspace    string
	settingsPath string
	scriptPath   string
	call         string
	logLevel     string
	timeout      time.Duration
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, target := parseFlags()

	script, err := loadScript(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.workspace != "" {
		script.Workspace = opts.workspace
	}

	rc, err := replay.NewContext(script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.settingsPath != "" {
		if err := settings.MergeTOML(rc.Settings, opts.settingsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading settings: %v\n", err)
			return 1
		}
	}

	log := extkit.NewLogger(extkit.LoggerConfig{
		Level:  extkit.ParseLogLevel(opts.logLevel),
		Prefix: "extrun",
	})
	hostCtx := rc.HostContext(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	ext, err := loadExtension(hostCtx, target, extkit.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := ext.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading %s: %v\n", ext.Name(), err)
		return 1
	}
	defer func() {
		if err := ext.Unload(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: unloading %s: %v\n", ext.Name(), err)
		}
	}()

	if err := ext.Activate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: activating %s: %v\n", ext.Name(), err)
		return 1
	}

	if opts.call != "" {
		result, err := ext.Call(ctx, opts.call)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: calling %s: %v\n", opts.call, err)
			return 1
		}
		if result != nil {
			fmt.Printf("%s = %v\n", opts.call, result)
		}
	}

	for _, event := range rc.Host.Transcript() {
		fmt.Println(event)
	}
	return 0
}

// loadScript reads the replay script, or returns an empty one when no
// script flag was given.
func loadScript(opts options) (*replay.Script, error) {
	if opts.scriptPath == "" {
		return &replay.Script{}, nil
	}
	return replay.LoadScript(opts.scriptPath)
}

// loadExtension constructs an extension from a directory containing an
// extension.json, or from a bare .lua file.
func loadExtension(hostCtx *host.Context, target string, opts ...extkit.ExtensionOption) (*extkit.Extension, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		loader := extkit.NewLoader(hostCtx)
		return loader.LoadDir(target, opts...)
	}

	if !strings.HasSuffix(target, ".lua") {
		return nil, fmt.Errorf("%s is neither an extension directory nor a .lua file", target)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(abs), ".lua")
	loader := extkit.NewLoader(hostCtx, extkit.WithSearchPaths(filepath.Dir(abs)))
	if _, err := loader.Discover(); err != nil {
		return nil, err
	}
	return loader.Load(name, opts...)
}

func parseFlags() (options, string) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.workspace, "workspace", "", "Workspace root directory")
	flag.StringVar(&opts.settingsPath, "settings", "", "TOML settings file merged into the store")
	flag.StringVar(&opts.scriptPath, "script", "", "Replay script (YAML) with scripted prompt answers")
	flag.StringVar(&opts.call, "call", "", "Global Lua function to call after activation")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Abort the run after this duration (0 = no limit)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "extrun - headless extension runner\n\n")
		fmt.Fprintf(os.Stderr, "Usage: extrun [options] <extension-dir | script.lua>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  extrun ./my-extension                 Run a packaged extension\n")
		fmt.Fprintf(os.Stderr, "  extrun hello.lua                      Run a single-file extension\n")
		fmt.Fprintf(os.Stderr, "  extrun -script answers.yaml ./ext     Run with scripted prompts\n")
		fmt.Fprintf(os.Stderr, "  extrun -call greet ./ext              Call greet() after activation\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("extrun %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	return opts, flag.Arg(0)
}
