package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vc-interop/issuer-contract-tests/config"
	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/framework"
	"github.com/vc-interop/issuer-contract-tests/implementations"
	"github.com/vc-interop/issuer-contract-tests/issuer"
	"github.com/vc-interop/issuer-contract-tests/issuertests"
	"github.com/vc-interop/issuer-contract-tests/logging"
	"github.com/vc-interop/issuer-contract-tests/report"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg, err := config.Load(args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %s\n", err)
		return 1
	}
	if cfg == nil {
		// --help or --version
		return 0
	}

	logFile, err := logging.Configure(logrus.StandardLogger(), logging.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		Location: cfg.LogLocation,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %s\n", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}

	params, filters, err := setup(cfg)
	if err != nil {
		logrus.WithError(err).Error("could not start test run")
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	_, missing := params.Manifest.Select(params.Tag)
	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, filters, params.Tag, missing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Running test suite (profile %s)\n", params.Profile.Name)
	testLogger := &framework.SynchronizedTestLogger{Target: &ConsoleTestLogger{
		Out:                  os.Stdout,
		DebugOutputOnFailure: cfg.Debug || cfg.DebugAll,
		DebugOutputOnSuccess: cfg.DebugAll,
	}}
	results, matrix := issuertests.RunTestSuite(ctx, params, filters.AsFilter, testLogger)

	fmt.Println()
	report.WriteText(os.Stdout, matrix)
	fmt.Println()
	framework.PrintResults(os.Stdout, results)

	if cfg.Report != "" {
		if err := report.WriteJSONFile(cfg.Report, matrix); err != nil {
			logrus.WithError(err).Error("could not write report")
			return 1
		}
		fmt.Printf("Report written to %s\n", cfg.Report)
	}

	if ctx.Err() != nil {
		fmt.Println("Test run interrupted")
		return 1
	}
	if !results.OK() {
		fmt.Println()
		fmt.Println("To run only the failed tests again:")
		fmt.Printf("  %s\n", rerunCommand(args[0], cfg, results))
		return 1
	}
	return 0
}

func setup(cfg *config.Config) (issuertests.SuiteParams, framework.RegexFilters, error) {
	var filters framework.RegexFilters
	for _, pattern := range cfg.Run {
		if err := filters.MustMatch.Set(pattern); err != nil {
			return issuertests.SuiteParams{}, filters, errors.Wrap(err, "--run")
		}
	}
	for _, pattern := range cfg.Skip {
		if err := filters.MustNotMatch.Set(pattern); err != nil {
			return issuertests.SuiteParams{}, filters, errors.Wrap(err, "--skip")
		}
	}

	profile, err := issuertests.LookupProfile(cfg.Profile)
	if err != nil {
		return issuertests.SuiteParams{}, filters, err
	}
	manifest, err := implementations.LoadManifest(cfg.Manifest)
	if err != nil {
		return issuertests.SuiteParams{}, filters, err
	}

	var factory *fixtures.Factory
	if cfg.Template != "" {
		factory, err = fixtures.NewFactoryFromFile(cfg.Template)
	} else {
		factory, err = fixtures.NewDefaultFactory()
	}
	if err != nil {
		return issuertests.SuiteParams{}, filters, err
	}

	client := issuer.NewClient(issuer.TransportConfig{
		InsecureSkipVerify: cfg.InsecureTLS,
		Timeout:            cfg.Timeout,
		Tracing:            cfg.Tracing,
	}, issuer.WithLogger(logrus.StandardLogger()))

	tag := cfg.Tag
	if tag == "" {
		tag = profile.Tag
	}
	debug := framework.LogrusLogger(logrus.StandardLogger())
	debug.Printf("profile %s selects issuers tagged %q from %d implementations in %s",
		profile.Name, tag, len(manifest), cfg.Manifest)
	if cfg.InsecureTLS {
		logrus.Warn("TLS certificate verification is disabled")
	}

	return issuertests.SuiteParams{
		Manifest:    manifest,
		Client:      client,
		Fixtures:    factory,
		Profile:     profile,
		Tag:         tag,
		Concurrency: cfg.Concurrency,
	}, filters, nil
}
