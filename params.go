package main

import (
	"strings"

	"github.com/alessio/shellescape"

	"github.com/vc-interop/issuer-contract-tests/config"
	"github.com/vc-interop/issuer-contract-tests/framework"
)

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// rerunCommand is a command line that runs only the tests that failed. Settings are passed as
// flags rather than through the settings file, since the file would override --run.
func rerunCommand(program string, cfg *config.Config, results framework.Results) string {
	var b commandBuilder
	b.add(program)
	b.add("--manifest", cfg.Manifest, "--profile", cfg.Profile)
	if cfg.Tag != "" {
		b.add("--tag", cfg.Tag)
	}
	if cfg.Template != "" {
		b.add("--template", cfg.Template)
	}
	if cfg.InsecureTLS {
		b.add("--insecure-tls")
	}
	b.add("--run", framework.FailedTestPattern(results))
	b.add("--debug")
	return b.String()
}
