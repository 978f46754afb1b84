// Package framework runs named tests and collects their results, independently of what is
// being tested.
//
// A Context plays the role of Go's *testing.T: it carries a TestID (a path of names such as
// implementation/rule), accumulates errors, and works with the assert and require packages.
// Context.Group creates a container that is never filtered, Context.Run creates a test that the
// --run and --skip regexes can exclude.
//
// Each test captures its own debug output, which is handed to the TestLogger when the test
// finishes, so that output from concurrently running groups is not interleaved.
//
// Domain packages such as issuertests wrap Context in their own test API.
package framework
