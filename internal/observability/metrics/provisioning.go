// Package metrics defines standardised metric emission for the provisioning saga.
package metrics

import (
	"time"

	obserrors "github.com/miked5167/directory-wizard/internal/observability/errors"
	"github.com/miked5167/directory-wizard/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess      = "success"
	ResultError        = "error"
	ResultCancelled    = "cancelled"
	ResultNoop         = "noop"
	ResultCompensation = "compensation"
)

// StepMetric captures one step execution for metric emission.
type StepMetric struct {
	JobType  string
	Step     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitStep emits per-step counters and timings.
func EmitStep(sink statsd.Sink, in StepMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type": in.JobType,
		"step":     in.Step,
		"result":   in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("provisioning.step", 1, tags)
	if in.Duration > 0 {
		sink.Timing("provisioning.step_duration", in.Duration, CloneTags(tags))
	}
}

// SagaMetric captures the outcome of one whole saga run.
type SagaMetric struct {
	JobType  string
	Result   string
	Duration time.Duration
}

// EmitSaga emits saga-level outcome metrics.
func EmitSaga(sink statsd.Sink, in SagaMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type": in.JobType,
		"result":   in.Result,
	}

	sink.Count("provisioning.saga", 1, tags)
	if in.Duration > 0 {
		sink.Timing("provisioning.saga_duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
