// Package pipeline runs the ordered stages of one collection run. Each
// stage declares a failure severity: a fatal stage aborts the run, a
// soft stage is recorded and the run continues with warnings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
)

type Severity int

const (
	Fatal Severity = iota
	Soft
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusSoft    Status = "soft-failed"
	StatusFatal   Status = "fatal"
	StatusSkipped Status = "skipped"
)

// ErrSkipped marks a stage that decided it has nothing to do. Wrap it
// with the reason; the stage is reported as skipped, not failed.
var ErrSkipped = errors.New("stage skipped")

// Stage is one unit of work.
type Stage struct {
	Name     string
	Severity Severity
	Run      func(ctx context.Context) error
}

// StageResult records one executed stage for the run report.
type StageResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Err      error
}

// Report is the structured record of one run.
type Report struct {
	Results []StageResult
}

// Fatal reports whether the run aborted on a fatal stage.
func (r *Report) Fatal() bool {
	for _, res := range r.Results {
		if res.Status == StatusFatal {
			return true
		}
	}
	return false
}

// SoftFailures counts stages that failed without aborting the run.
func (r *Report) SoftFailures() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSoft {
			n++
		}
	}
	return n
}

// Render produces the plain-text report stored in the run log.
func (r *Report) Render() string {
	var b strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-14s %-12s %12s", res.Name, res.Status, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(&b, "  %v", res.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Print renders the report as a table on the logger output.
func (r *Report) Print() {
	table := logger.CreateTable([]string{"Stage", "Status", "Duration", "Detail"})
	for _, res := range r.Results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		if err := table.Append([]string{res.Name, string(res.Status), res.Duration.Round(time.Millisecond).String(), detail}); err != nil {
			logger.LogError("Failed to append report row: %v", err)
			return
		}
	}
	if err := table.Render(); err != nil {
		logger.LogError("Failed to render report: %v", err)
	}
}

// Execute runs stages strictly in order. A fatal failure stops the run
// immediately; soft failures and skips are recorded and execution
// continues. A canceled context is always fatal, whatever the stage
// severity says.
func Execute(ctx context.Context, stages []Stage) *Report {
	rep := &Report{}
	for _, st := range stages {
		logger.Info("Stage %s", st.Name)
		start := time.Now()
		err := st.Run(ctx)
		res := StageResult{Name: st.Name, Status: StatusOK, Duration: time.Since(start)}

		switch {
		case err == nil:
			logger.Success("%s done in %s", st.Name, res.Duration.Round(time.Millisecond))
		case errors.Is(err, ErrSkipped):
			res.Status = StatusSkipped
			logger.Info("%s: %v", st.Name, err)
		case st.Severity == Fatal || ctx.Err() != nil:
			res.Status = StatusFatal
			res.Err = err
			logger.LogError("%s failed: %v", st.Name, err)
			rep.Results = append(rep.Results, res)
			return rep
		default:
			res.Status = StatusSoft
			res.Err = err
			logger.Warn("%s failed, continuing: %v", st.Name, err)
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}
