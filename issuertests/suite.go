package issuertests

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/framework"
	"github.com/vc-interop/issuer-contract-tests/implementations"
	"github.com/vc-interop/issuer-contract-tests/issuer"
	"github.com/vc-interop/issuer-contract-tests/report"
)

// SuiteParams are the inputs of one test run.
type SuiteParams struct {
	Manifest implementations.Manifest
	Client   *issuer.Client
	Fixtures *fixtures.Factory
	Profile  Profile

	// Tag overrides the profile's issuer tag.
	Tag string

	// Concurrency is the number of implementations tested at the same time. Rules for one
	// implementation always run one after another.
	Concurrency int
}

func (p SuiteParams) tag() string {
	if p.Tag != "" {
		return p.Tag
	}
	return p.Profile.Tag
}

// RunTestSuite runs every rule against every implementation in the manifest. Test IDs are
// "<implementation>/<rule>". The matrix has one row per rule and one column per implementation,
// in manifest order.
func RunTestSuite(
	ctx context.Context,
	params SuiteParams,
	filter framework.Filter,
	testLogger framework.TestLogger,
) (framework.Results, report.Matrix) {
	rules := Rules()
	aggregator := report.NewAggregator()
	for _, rule := range rules {
		aggregator.RegisterRule(rule.Name)
	}
	for _, name := range params.Manifest.Names() {
		aggregator.RegisterImplementation(name)
	}

	env := &environment{
		ctx:      ctx,
		client:   params.Client,
		fixtures: params.Fixtures,
		profile:  params.Profile,
	}
	tag := params.tag()
	concurrency := params.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := framework.Run(filter, testLogger, func(c *framework.Context) {
		var g errgroup.Group
		g.SetLimit(concurrency)
		for _, impl := range params.Manifest {
			impl := impl
			descriptor, ok := impl.Issuer(tag)
			if !ok {
				reason := fmt.Sprintf("no issuer tagged %q", tag)
				recordOrFail(c, aggregator.NotImplemented(impl.Name, reason))
				c.Group(impl.Name, func(c *framework.Context) { c.SkipWithReason(reason) })
				continue
			}
			g.Go(func() error {
				c.Group(impl.Name, func(c *framework.Context) {
					runImplementation(c, env, aggregator, rules, impl.Name, descriptor)
				})
				return nil
			})
		}
		_ = g.Wait()
	})

	return results, aggregator.Matrix()
}

func runImplementation(
	c *framework.Context,
	env *environment,
	aggregator *report.Aggregator,
	rules []Rule,
	name string,
	descriptor implementations.IssuerDescriptor,
) {
	target, err := env.client.Prepare(descriptor)
	if err != nil {
		recordOrFail(c, aggregator.FailAll(name, err.Error()))
		c.Errorf("%s", err)
		return
	}
	c.Debug("testing issuer %s at %s (auth: %s)", descriptor.ID, descriptor.Endpoint, target.Strategy.Kind())

	t := &T{context: c, env: env, name: name, target: target}
	for _, rule := range rules {
		if env.ctx.Err() != nil {
			return
		}
		result := t.Run(rule.Name, rule.Run)
		switch {
		case result.Filtered:
		case result.Skipped:
			recordOrFail(c, aggregator.Record(rule.Name, name, report.NotImplemented, result.SkipReason))
		case result.Failed:
			recordOrFail(c, aggregator.Record(rule.Name, name, report.Fail, result.ErrorSummary()))
		default:
			recordOrFail(c, aggregator.Record(rule.Name, name, report.Pass, ""))
		}
	}
}

func recordOrFail(c *framework.Context, err error) {
	if err != nil {
		c.Errorf("recording outcome: %s", err)
	}
}
