package framework

import "sync"

type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, failed bool, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                        {}
func (n nullTestLogger) TestError(TestID, error)                   {}
func (n nullTestLogger) TestFinished(TestID, bool, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                {}

// SynchronizedTestLogger serializes calls to another TestLogger, so that output from tests
// running on different goroutines is not interleaved within a single entry.
type SynchronizedTestLogger struct {
	Target TestLogger
	lock   sync.Mutex
}

func (s *SynchronizedTestLogger) TestStarted(id TestID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Target.TestStarted(id)
}

func (s *SynchronizedTestLogger) TestError(id TestID, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Target.TestError(id, err)
}

func (s *SynchronizedTestLogger) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Target.TestFinished(id, failed, debugOutput)
}

func (s *SynchronizedTestLogger) TestSkipped(id TestID, reason string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Target.TestSkipped(id, reason)
}
