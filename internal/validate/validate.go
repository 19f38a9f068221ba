// Package validate checks that provisioned capabilities are usable.
//
// Validators only observe the machine. A result is ok, warn (soft failure:
// reported, does not block) or fail (hard failure: blocks the gate).
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

// Status is the outcome of one validator.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is the outcome of one validator.
type Result struct {
	Name           string
	Status         Status
	Detail         string
	Recommendation string
}

// Env is the read-only context a validator observes.
type Env struct {
	Config config.RunConfig
	System system.System
}

// Validator checks one capability without side effects.
type Validator interface {
	Name() string
	Check(ctx context.Context, env Env) Result
}

// GateError reports hard validation failures.
type GateError struct {
	Failures []Result
}

func (e *GateError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, r := range e.Failures {
		names = append(names, r.Name)
	}
	return fmt.Sprintf(messages.ValidateGateFailedFmt, len(e.Failures), strings.Join(names, ", "))
}

// Run executes validators in order.
func Run(ctx context.Context, env Env, validators []Validator) []Result {
	results := make([]Result, 0, len(validators))
	for _, v := range validators {
		r := v.Check(ctx, env)
		if r.Name == "" {
			r.Name = v.Name()
		}
		results = append(results, r)
	}
	return results
}

// Gate passes iff no result is a hard failure.
func Gate(results []Result) bool {
	return len(Failures(results)) == 0
}

// Failures returns the hard failures.
func Failures(results []Result) []Result {
	return filter(results, StatusFail)
}

// Warnings returns the soft failures.
func Warnings(results []Result) []Result {
	return filter(results, StatusWarn)
}

func filter(results []Result, status Status) []Result {
	var out []Result
	for _, r := range results {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Check returns a *GateError when results contain hard failures.
func Check(results []Result) error {
	if Gate(results) {
		return nil
	}
	return &GateError{Failures: Failures(results)}
}

// Report logs one line per result. Hard failures log at ERROR unless
// failAsWarn is set, in which case they log at WARN.
func Report(log *logging.Logger, results []Result, failAsWarn bool) {
	for _, r := range results {
		line := fmt.Sprintf(messages.ValidateResultFmt, r.Name, oneLine(r.Detail))
		switch r.Status {
		case StatusOK:
			log.Successf("%s", line)
		case StatusWarn:
			log.Warnf("%s", line)
		default:
			if failAsWarn {
				log.Warnf("%s", line)
			} else {
				log.Errorf("%s", line)
			}
		}
		if r.Status != StatusOK && r.Recommendation != "" {
			log.Infof(messages.ValidateRecommendFmt, r.Name, oneLine(r.Recommendation))
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
