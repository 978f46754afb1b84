// Package report collects per-rule, per-implementation outcomes into an interoperability
// matrix and renders it.
package report

import (
	"sync"

	"github.com/pkg/errors"
)

// Status is the outcome of one rule for one implementation.
type Status string

const (
	// NotRun is the status of a cell nobody recorded.
	NotRun         Status = ""
	Pass           Status = "pass"
	Fail           Status = "fail"
	NotImplemented Status = "not-implemented"
)

// Cell is one entry of the matrix.
type Cell struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Matrix is a snapshot of the recorded outcomes. Cells[i][j] belongs to Rules[i] and
// Implementations[j].
type Matrix struct {
	Rules           []string `json:"rules"`
	Implementations []string `json:"implementations"`
	Cells           [][]Cell `json:"cells"`
}

// Cell returns the entry for a rule and implementation by name.
func (m Matrix) Cell(rule, implementation string) (Cell, bool) {
	i, j := indexOf(m.Rules, rule), indexOf(m.Implementations, implementation)
	if i < 0 || j < 0 {
		return Cell{}, false
	}
	return m.Cells[i][j], true
}

// Summary counts the cells of the matrix by status.
func (m Matrix) Summary() map[Status]int {
	ret := make(map[Status]int)
	for _, row := range m.Cells {
		for _, c := range row {
			ret[c.Status]++
		}
	}
	return ret
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	lock            sync.Mutex
	rules           []string
	implementations []string
	cells           map[key]Cell
}

type key struct {
	rule, implementation string
}

var (
	ErrUnknownRule           = errors.New("unknown rule")
	ErrUnknownImplementation = errors.New("unknown implementation")
	ErrAlreadyRecorded       = errors.New("outcome already recorded")
)

func NewAggregator() *Aggregator {
	return &Aggregator{cells: make(map[key]Cell)}
}

// RegisterRule adds a row. Registering the same rule again has no effect.
func (a *Aggregator) RegisterRule(rule string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if indexOf(a.rules, rule) < 0 {
		a.rules = append(a.rules, rule)
	}
}

// RegisterImplementation adds a column. Registering the same implementation again has no
// effect.
func (a *Aggregator) RegisterImplementation(implementation string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if indexOf(a.implementations, implementation) < 0 {
		a.implementations = append(a.implementations, implementation)
	}
}

// Record sets the outcome of a rule for an implementation. Each cell can only be written once.
func (a *Aggregator) Record(rule, implementation string, status Status, detail string) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.recordLocked(rule, implementation, status, detail)
}

func (a *Aggregator) recordLocked(rule, implementation string, status Status, detail string) error {
	if indexOf(a.rules, rule) < 0 {
		return errors.Wrapf(ErrUnknownRule, "%q", rule)
	}
	if indexOf(a.implementations, implementation) < 0 {
		return errors.Wrapf(ErrUnknownImplementation, "%q", implementation)
	}
	if status == NotRun {
		return errors.New("cannot record an empty status")
	}
	k := key{rule, implementation}
	if _, exists := a.cells[k]; exists {
		return errors.Wrapf(ErrAlreadyRecorded, "%q / %q", rule, implementation)
	}
	a.cells[k] = Cell{Status: status, Detail: detail}
	return nil
}

// NotImplemented marks every rule not yet recorded for an implementation as not implemented.
func (a *Aggregator) NotImplemented(implementation, reason string) error {
	return a.fillRemaining(implementation, NotImplemented, reason)
}

// FailAll marks every rule not yet recorded for an implementation as failed, for an
// implementation that could not be tested at all.
func (a *Aggregator) FailAll(implementation, reason string) error {
	return a.fillRemaining(implementation, Fail, reason)
}

func (a *Aggregator) fillRemaining(implementation string, status Status, detail string) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if indexOf(a.implementations, implementation) < 0 {
		return errors.Wrapf(ErrUnknownImplementation, "%q", implementation)
	}
	for _, rule := range a.rules {
		if _, exists := a.cells[key{rule, implementation}]; !exists {
			if err := a.recordLocked(rule, implementation, status, detail); err != nil {
				return err
			}
		}
	}
	return nil
}

// Matrix returns the current outcomes, with rows and columns in registration order.
func (a *Aggregator) Matrix() Matrix {
	a.lock.Lock()
	defer a.lock.Unlock()
	m := Matrix{
		Rules:           append([]string(nil), a.rules...),
		Implementations: append([]string(nil), a.implementations...),
		Cells:           make([][]Cell, len(a.rules)),
	}
	for i, rule := range a.rules {
		m.Cells[i] = make([]Cell, len(a.implementations))
		for j, impl := range a.implementations {
			m.Cells[i][j] = a.cells[key{rule, impl}]
		}
	}
	return m
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
