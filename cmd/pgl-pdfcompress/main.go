package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/config"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/engine"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/hints"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/invoker"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/nativecomp"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/planner"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
)

// appName is the canonical name of the application used for logging.
const appName = "PGL-PDFCompress"

// version holds the application's version string.
// It's a `var` so it can be set at compile time using ldflags.
// Example: go build -ldflags="-X main.version=1.0.0"
var version = "dev"

// action defines a special command to execute instead of a compression run.
type action int

const (
	actionRunCompress action = iota // The default action is to run a compression batch.
	actionShowVersion
	actionInitConfig
)

// init is called before main. We use it to set up a custom, more descriptive
// help message for the command-line flags.
func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", appName, version)
		fmt.Fprintf(flag.CommandLine.Output(), "Batch-compresses matching files from a source tree into a mirrored output tree.\n\n")
		flag.PrintDefaults()
	}
}

// parseFlagConfig defines and parses command-line flags, and constructs a
// configuration object containing only the values provided by those flags.
func parseFlagConfig() (action, map[string]interface{}, error) {
	// --- Flag Design Philosophy ---
	// Flags are exposed for options that are useful to override for a single run
	// (e.g., -dry-run, -quality=screen, -log-level=debug).
	//
	// Options that define the long-term behavior of a compression setup (the
	// command template, the tool package) can also be set consistently in the
	// pgl-pdfcompress.config.json file.

	// Define flags with zero-value defaults. We will merge them later.
	srcFlag := flag.String("source", "", "Source directory to read files from")
	outputFlag := flag.String("output", "", "Output directory for the compressed tree. Must not exist yet.")
	logLevelFlag := flag.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	failFastFlag := flag.Bool("fail-fast", false, "Stop the batch immediately on the first compression error.")
	dryRunFlag := flag.Bool("dry-run", false, "Show what would be done without making any changes.")
	metricsFlag := flag.Bool("metrics", false, "Enable detailed file-counting and size metrics.")
	initFlag := flag.Bool("init", false, "Generate a default pgl-pdfcompress.config.json file and exit.")
	versionFlag := flag.Bool("version", false, "Print the application version and exit.")
	extensionFlag := flag.String("extension", "", "Filename suffix to match, e.g. '.pdf'.")
	recursiveFlag := flag.Bool("recursive", false, "Recurse into subdirectories instead of scanning only the source root.")
	matchContainsFlag := flag.Bool("match-contains", false, "Match the extension token anywhere in the filename instead of as a suffix.")
	pruneEmptyDirsFlag := flag.Bool("prune-empty-dirs", false, "Skip directories whose subtree holds no matching files.")
	engineFlag := flag.String("engine", "", "Compression engine: 'external', 'gzip' or 'zstd'.")
	qualityFlag := flag.String("quality", "", "Ghostscript quality preset: 'screen', 'ebook', 'printer' or 'prepress'.")
	levelFlag := flag.String("level", "", "Native codec level: 'default', 'fastest', 'better' or 'best'.")
	workersFlag := flag.Int("workers", 0, "Number of concurrent compressions within a directory.")
	bufferSizeKBFlag := flag.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes for native compression.")
	toolPackageFlag := flag.String("tool-package", "", "System package checked for the external tool (default 'ghostscript').")
	toolBinaryFlag := flag.String("tool-binary", "", "Executable probed on PATH for the external tool (default 'gs').")
	commandTemplateFlag := flag.String("command-template", "", "External command line with <QUALITY>, <OUTPUT> and <SOURCE> tokens.")
	skipToolCheckFlag := flag.Bool("skip-tool-check", false, "Skip the external tool presence check.")

	flag.Parse()

	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration.
	usedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]interface{})

	// Helper to add a value to the map only if the corresponding flag was set.
	addIfUsed := func(name string, value interface{}) {
		if usedFlags[name] {
			flagMap[name] = value
		}
	}

	// Populate the map using the helper.
	addIfUsed("source", *srcFlag)
	addIfUsed("output", *outputFlag)
	addIfUsed("log-level", *logLevelFlag)
	addIfUsed("fail-fast", *failFastFlag)
	addIfUsed("dry-run", *dryRunFlag)
	addIfUsed("metrics", *metricsFlag)
	addIfUsed("extension", *extensionFlag)
	addIfUsed("recursive", *recursiveFlag)
	addIfUsed("match-contains", *matchContainsFlag)
	addIfUsed("prune-empty-dirs", *pruneEmptyDirsFlag)
	addIfUsed("workers", *workersFlag)
	addIfUsed("buffer-size-kb", *bufferSizeKBFlag)
	addIfUsed("tool-package", *toolPackageFlag)
	addIfUsed("tool-binary", *toolBinaryFlag)
	addIfUsed("command-template", *commandTemplateFlag)
	addIfUsed("skip-tool-check", *skipToolCheckFlag)

	// Handle flags that require validation. Parsing to typed values happens in
	// the planner; here we only reject obvious garbage early for a better error.
	if usedFlags["engine"] {
		if _, err := invoker.ParseEngine(*engineFlag); err != nil {
			return actionRunCompress, nil, err
		}
		flagMap["engine"] = *engineFlag
	}
	if usedFlags["quality"] {
		if _, err := invoker.ParseQuality(*qualityFlag); err != nil {
			return actionRunCompress, nil, err
		}
		flagMap["quality"] = *qualityFlag
	}
	if usedFlags["level"] {
		if _, err := nativecomp.ParseLevel(*levelFlag); err != nil {
			return actionRunCompress, nil, err
		}
		flagMap["level"] = *levelFlag
	}

	// Determine which action to take based on flags.
	if *versionFlag {
		return actionShowVersion, flagMap, nil
	}
	if *initFlag {
		return actionInitConfig, flagMap, nil
	}
	return actionRunCompress, flagMap, nil
}

// runInit handles the logic for the 'init' action.
func runInit(flagMap map[string]interface{}, version string) error {
	// Create a config from defaults merged with user flags.
	runConfig := config.MergeConfigWithFlags(config.NewDefault(), flagMap)
	runConfig.Version = version

	if err := config.Generate(runConfig, "."); err != nil {
		return err
	}
	plog.Info(appName + " config successfully generated.")
	return nil
}

// runCompress handles the logic for the main compression action.
func runCompress(ctx context.Context, flagMap map[string]interface{}, version string) error {
	// Load config from the working directory, or use defaults if not found.
	loadedConfig, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(loadedConfig, flagMap)
	runConfig.Version = version

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	if err := runConfig.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runConfig.LogSummary()

	plan, err := planner.GenerateCompressionPlan(runConfig)
	if err != nil {
		return err
	}

	// The native engines compress in-process; the external engine needs none.
	var compressor invoker.FileCompressor
	if plan.Batch.Engine != invoker.External {
		compressor, err = nativecomp.New(plan.NativeFormat, plan.NativeLevel, plan.BufferSize)
		if err != nil {
			return err
		}
	}

	startTime := time.Now()
	runner := engine.NewRunner(nil, compressor)
	results, err := runner.ExecuteCompression(ctx, plan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		if hints.IsHint(err) {
			plog.Info(appName+" finished with nothing to do.", "reason", err.Error())
			return nil
		}
		return err // The error will be logged with full details by main()
	}

	var failed int
	for _, res := range results {
		if !res.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to compress", failed, len(results))
	}
	plog.Info(appName+" finished successfully.", "files", len(results), "duration", duration)
	return nil
}

// run encapsulates the main application logic and returns an error if something
// goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context) error {
	plog.Info("Starting "+appName, "version", version, "pid", os.Getpid())

	action, flagMap, err := parseFlagConfig()
	if err != nil {
		return err
	}

	switch action {
	case actionShowVersion:
		fmt.Printf("%s version %s\n", appName, version)
		return nil
	case actionInitConfig:
		return runInit(flagMap, version)
	case actionRunCompress:
		return runCompress(ctx, flagMap, version)
	default:
		return fmt.Errorf("internal error: unknown action %d", action)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for interrupt signals (like Ctrl+C) in a separate goroutine.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(appName+" exited with error", "error", err)
		os.Exit(1)
	}
}
