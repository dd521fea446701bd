package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/internal/logging"
	"github.com/iwvelando/loan-affordability/internal/optimizer"
	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/output"
	"github.com/iwvelando/loan-affordability/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	schedule := flag.Bool("schedule", false, "print the amortization schedule for every application")
	optimize := flag.Bool("optimize", true, "run configured optimizers before computing estimates")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if *schedule {
		for i := range conf.Applications {
			conf.Applications[i].Schedule = true
		}
	}

	var optimizationResult *optimizer.Result
	if *optimize {
		runner, err := optimizer.NewRunner(logger, conf)
		if err != nil {
			logger.Fatal("failed to initialize optimizer",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		optimizationResult, err = runner.Run()
		if err != nil {
			logger.Fatal("optimizer execution failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	results, err := estimate.GetEstimates(logger, *conf)
	if err != nil {
		logger.Fatal("failed to compute estimates",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if optimizationResult != nil && !optimizationResult.Empty() {
		optimizationResult.Apply(results)
	}

	opts := output.Options{
		Currency: conf.Defaults.CurrencyCode(),
		Places:   conf.Defaults.Places(),
		Schedule: true,
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, results, opts)
	case constants.OutputFormatCSV:
		if err := output.CsvFormat(os.Stdout, results, opts); err != nil {
			logger.Fatal("failed to write CSV output",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}
}
