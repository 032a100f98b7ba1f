package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/packvote/packvote/internal/api"
	"github.com/packvote/packvote/internal/flow"
	"github.com/packvote/packvote/internal/genai"
	"github.com/packvote/packvote/internal/lockfile"
	"github.com/packvote/packvote/internal/notify"
	"github.com/packvote/packvote/internal/store"
	"github.com/packvote/packvote/internal/tools"
	"github.com/packvote/packvote/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PackVote state data
	DefaultStateDir = "/var/lib/packvote"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "packvote.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// File-backed storage cannot tolerate two instances sharing a state
	// directory; PostgreSQL handles its own concurrency.
	if *flags.dbDSN == "" || store.DetectDSNType(*flags.dbDSN) != "postgres" {
		lock, lockErr := lockfile.AcquireLock(*flags.stateDir)
		if lockErr != nil {
			slog.Error("Failed to acquire state directory lock", "error", lockErr)
			fmt.Fprintln(os.Stderr, lockErr)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := store.NewStore(buildStoreOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	genaiClient, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize GenAI client", "error", err)
		os.Exit(1)
	}

	search, err := tools.NewTavilyClient(buildSearchOptions(config)...)
	if err != nil {
		slog.Error("Failed to initialize search tool", "error", err)
		os.Exit(1)
	}
	weather, err := tools.NewOpenWeatherClient(buildWeatherOptions(config)...)
	if err != nil {
		slog.Error("Failed to initialize weather tool", "error", err)
		os.Exit(1)
	}

	planner := flow.NewPlanner(st, genaiClient, search, weather, *flags.maxSteps)

	// SMS delivery is optional: without Twilio credentials the API still
	// serves planning runs, it just cannot notify travelers.
	var sender notify.Sender
	if config.TwilioSID != "" && config.TwilioToken != "" && config.TwilioFrom != "" {
		twClient, twErr := notify.NewClient(
			notify.WithAccountSID(config.TwilioSID),
			notify.WithAuthToken(config.TwilioToken),
			notify.WithFromNumber(config.TwilioFrom),
		)
		if twErr != nil {
			slog.Error("Failed to initialize Twilio client", "error", twErr)
			os.Exit(1)
		}
		sender = twClient
	} else {
		slog.Info("Twilio credentials not configured, SMS delivery disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-shot mode: run the planner for a project and print the itinerary.
	if *flags.planProject != "" {
		runOnce(ctx, planner, *flags.planProject, *flags.instruction)
		return
	}

	srv := api.NewServer(st, planner, sender, buildAPIOptions(flags)...)
	slog.Info("Bootstrapping PackVote with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr, "max_steps", *flags.maxSteps, "sms_enabled", sender != nil)
	if err := srv.Run(ctx); err != nil {
		slog.Error("PackVote failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PackVote exited successfully")
}

// runOnce executes a single planning run and writes the itinerary to stdout.
func runOnce(ctx context.Context, planner *flow.Planner, project, instruction string) {
	result, err := planner.RunProject(ctx, project, instruction)
	if err != nil {
		slog.Error("Planning run failed", "error", err, "project", project)
		os.Exit(1)
	}
	slog.Info("Planning run completed",
		"project", project, "run_id", result.RunID,
		"termination", result.Termination, "steps", result.Steps, "attempts", result.State.Attempts)
	if result.State.Evaluation != nil {
		fmt.Println(result.State.Evaluation.Summary())
		fmt.Println()
	}
	fmt.Println(result.State.LatestItinerary)
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	TavilyKey   string
	WeatherKey  string
	APIAddr     string
	MaxSteps    int
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	openaiKey   *string
	apiAddr     *string
	maxSteps    *int
	planProject *string
	instruction *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("PACKVOTE_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		TavilyKey:   os.Getenv("TAVILY_API_KEY"),
		WeatherKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		MaxSteps:    util.ParseIntEnv("PACKVOTE_MAX_STEPS", flow.DefaultMaxSteps),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PACKVOTE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("PACKVOTE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"PACKVOTE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TAVILY_API_KEY_SET", config.TavilyKey != "",
		"OPENWEATHERMAP_API_KEY_SET", config.WeatherKey != "",
		"API_ADDR", config.APIAddr,
		"PACKVOTE_MAX_STEPS", config.MaxSteps,
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for PackVote data (overrides $PACKVOTE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the project store (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		maxSteps:    flag.Int("max-steps", config.MaxSteps, "iteration bound for planning runs (overrides $PACKVOTE_MAX_STEPS)"),
		planProject: flag.String("plan", "", "run one planning workflow for the named project and exit"),
		instruction: flag.String("instruction", "", "user instruction for the one-shot planning run"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"maxSteps", *flags.maxSteps,
		"plan", *flags.planProject)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := *flags.stateDir
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir = filepath.Dir(*flags.dbDSN)
	}
	slog.Debug("Creating state directory for file-based storage", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		switch store.DetectDSNType(*flags.dbDSN) {
		case "postgres":
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		case "sqlite":
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		default:
			slog.Debug("DSN is neither PostgreSQL nor SQLite, using flat-file store", "dir", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithFileDir(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, using flat-file store in state directory", "state_dir", *flags.stateDir)
		storeOpts = append(storeOpts, store.WithFileDir(filepath.Join(*flags.stateDir, "surveys")))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildSearchOptions constructs search tool configuration options
func buildSearchOptions(config Config) []tools.Option {
	var searchOpts []tools.Option
	if config.TavilyKey != "" {
		searchOpts = append(searchOpts, tools.WithAPIKey(config.TavilyKey))
	}
	return searchOpts
}

// buildWeatherOptions constructs weather tool configuration options
func buildWeatherOptions(config Config) []tools.Option {
	var weatherOpts []tools.Option
	if config.WeatherKey != "" {
		weatherOpts = append(weatherOpts, tools.WithAPIKey(config.WeatherKey))
	}
	return weatherOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
