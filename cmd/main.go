package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"massdownloader/internal/application/dto"
	"massdownloader/internal/application/handler"
	"massdownloader/internal/application/ports"
	"massdownloader/internal/application/usecase"
	"massdownloader/internal/infrastructure/config"
	"massdownloader/internal/infrastructure/consent"
	"massdownloader/internal/infrastructure/console"
	"massdownloader/internal/infrastructure/observability"
	"massdownloader/internal/infrastructure/pe"
	"massdownloader/internal/infrastructure/srcsrv"
	"massdownloader/internal/infrastructure/storage"
	"massdownloader/internal/infrastructure/symsrv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}

// execute runs the command line and returns the process exit code
func execute(args []string, std streams) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := handler.ExitOK
	cmd := newRootCmd(std, &exitCode)
	cmd.SetArgs(args)
	cmd.SetIn(std.in)
	cmd.SetOut(std.out)
	cmd.SetErr(std.err)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return handler.ExitInvalidArgs
	}
	return exitCode
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	obs         observability.Observability
	locator     ports.Locator
	client      *symsrv.Client
	extractor   ports.SourceExtractor
	consent     ports.ConsentGate
	diagnostics ports.Diagnostics
	mirror      ports.Storage
	logger      ports.Logger
	metrics     ports.Metrics
}

// Application holds the complete application stack
type Application struct {
	handler *handler.RetrieveHandler
	obs     observability.Observability
	logger  ports.Logger
	metrics ports.Metrics
}

// loadConfiguration reads the environment and lets flags given on the
// command line override it
func loadConfiguration(cmd *cobra.Command, opts *flagOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Retrieval.OutputRoot = opts.output
	}
	if flags.Changed("symbol-cache") {
		cfg.Retrieval.SymbolCache = opts.symbolCache
	}
	if flags.Changed("force") {
		cfg.Retrieval.Force = opts.force
	}
	if flags.Changed("verbose") {
		cfg.Retrieval.Verbose = opts.verbose
	}
	if flags.Changed("workers") {
		cfg.Retrieval.Workers = opts.workers
	}
	if flags.Changed("symbol-server") {
		cfg.SymbolServer.URL = opts.symbolServer
	}
	if flags.Changed("license-url") {
		cfg.SymbolServer.LicenseURL = opts.licenseURL
	}
	if flags.Changed("accept-license") {
		cfg.Retrieval.AcceptLicense = opts.acceptLicense
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = opts.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// initializeDependencies sets up all infrastructure dependencies
func initializeDependencies(cfg *config.Config, std streams) (*Dependencies, error) {
	obs, err := observability.CreateObservability(cfg, uuid.NewString(), std.err)
	if err != nil {
		return nil, err
	}

	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		return nil, err
	}
	logStartup(cfg, logger, metrics)

	locator, err := pe.NewLocator(obs)
	if err != nil {
		return nil, err
	}

	client, err := symsrv.NewClient(symsrv.Options{
		ServerURL: cfg.SymbolServer.URL,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
	}, obs)
	if err != nil {
		return nil, err
	}

	extractor, err := srcsrv.NewExtractor(client, cfg.SymbolServer.LicenseURL, obs)
	if err != nil {
		return nil, err
	}

	gate, err := createConsentGate(cfg, std, obs)
	if err != nil {
		return nil, err
	}

	mirror, err := initializeStorage(cfg, obs, logger, metrics)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		obs:         obs,
		locator:     locator,
		client:      client,
		extractor:   extractor,
		consent:     gate,
		diagnostics: console.NewDiagnostics(std.out),
		mirror:      mirror,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// logStartup logs application startup information
func logStartup(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) {
	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"symbol_server", cfg.SymbolServer.URL)

	metrics.IncrementCounter("application.starts", nil)
}

// createConsentGate picks the prompt for interactive runs and a fixed policy
// for unattended ones or when the license was accepted up front
func createConsentGate(cfg *config.Config, std streams, obs ports.Observability) (ports.ConsentGate, error) {
	if cfg.Retrieval.AcceptLicense || cfg.Adapters.Consent == "policy" {
		return consent.NewPolicy(cfg.Retrieval.AcceptLicense, obs)
	}
	return consent.NewPrompt(std.in, std.out), nil
}

// initializeStorage sets up the optional PDB mirror
func initializeStorage(cfg *config.Config, obs ports.Observability, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	factory, err := storage.NewFactory(obs)
	if err != nil {
		return nil, err
	}

	store, err := factory.Create(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		metrics.IncrementCounter("init.failures", map[string]string{"stage": "storage"})
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// buildApplication assembles the application layers
func buildApplication(cfg *config.Config, deps *Dependencies) (*Application, error) {
	useCase, err := createUseCase(cfg, deps)
	if err != nil {
		return nil, err
	}

	h, err := handler.NewRetrieveHandler(useCase, deps.diagnostics, deps.obs)
	if err != nil {
		return nil, err
	}

	return &Application{
		handler: h,
		obs:     deps.obs,
		logger:  deps.logger,
		metrics: deps.metrics,
	}, nil
}

// createUseCase builds the business logic layer
func createUseCase(cfg *config.Config, deps *Dependencies) (*usecase.RetrieveArtifacts, error) {
	opts := []usecase.Option{usecase.WithSourceSubdir(cfg.Retrieval.SourceSubdir)}

	if deps.mirror != nil {
		mirror, err := usecase.NewMirror(deps.mirror, deps.obs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithMirror(mirror))
	}

	return usecase.NewRetrieveArtifacts(
		deps.locator,
		deps.client,
		deps.extractor,
		deps.consent,
		deps.diagnostics,
		deps.obs,
		opts...,
	)
}

// startApplication runs the batch and returns its exit code
func startApplication(ctx context.Context, cfg *config.Config, app *Application, inputs []string) int {
	req := &dto.RetrieveRequest{
		Inputs:      inputs,
		OutputRoot:  cfg.Retrieval.OutputRoot,
		SymbolCache: cfg.Retrieval.SymbolCache,
		Force:       cfg.Retrieval.Force,
		Verbose:     cfg.Retrieval.Verbose,
		Workers:     cfg.Retrieval.Workers,
	}

	resp := app.handler.Handle(ctx, req)
	if resp.Error != "" {
		app.logger.Error("Run finished with error", "error", resp.Error, "exit_code", resp.ExitCode)
	}

	if err := app.obs.Flush(); err != nil {
		app.logger.Error("Failed to write metrics file", "error", err, "path", cfg.Observability.MetricsFile)
	}
	return resp.ExitCode
}
