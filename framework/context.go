package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
	lock       sync.Mutex
}

// Context is the state of a single test or group of tests. It is similar to Go's *testing.T,
// and implements the TestingT interfaces used by the assert and require packages.
//
// A Context must only be used by the goroutine running its test, but sibling Contexts created
// with Run may run on different goroutines.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
}

func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	env.lock.Lock()
	defer env.lock.Unlock()
	return env.results
}

func (c *Context) run(action func(*Context)) TestResult {
	var result TestResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				if c.skipped {
					return
				}
				c.failed = true
				var addError error
				if _, ok := r.(*Context); ok {
					if len(c.errors) == 0 {
						addError = errors.New("test failed with no failure message")
					}
				} else {
					addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
				}
				if addError != nil {
					c.errors = append(c.errors, addError)
					c.env.testLogger.TestError(c.id, addError)
				}
			}
		}()
		action(c)
	}()

	result = TestResult{
		TestID:     c.id,
		Errors:     c.errors,
		Failed:     c.failed,
		Skipped:    c.skipped,
		SkipReason: c.skipReason,
	}
	if len(c.id.Path) > 0 {
		c.env.lock.Lock()
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
		c.env.lock.Unlock()
	}
	return result
}

// Run runs a subtest and returns its result. Tests excluded by the filter are reported as
// skipped without running the action.
func (c *Context) Run(name string, action func(*Context)) TestResult {
	return c.runChild(name, action, true)
}

// Group runs a subtest that only exists to hold other subtests, such as all of the tests for
// one service. The filter is not applied to the group itself, only to the tests within it.
func (c *Context) Group(name string, action func(*Context)) TestResult {
	return c.runChild(name, action, false)
}

func (c *Context) runChild(name string, action func(*Context), filtered bool) TestResult {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if filtered && c.env.filter != nil && !c.env.filter(id) {
		reason := "excluded by filter parameters"
		c.env.testLogger.TestSkipped(id, reason)
		return TestResult{TestID: id, Skipped: true, SkipReason: reason, Filtered: true}
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	result := c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
	return result
}

// Failed reports whether the test has failed so far.
func (c *Context) Failed() bool {
	return c.failed
}

func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, reformatError(err))
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}
