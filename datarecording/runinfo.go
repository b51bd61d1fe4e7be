package datarecording

import (
	"os"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

// RunInfo is a property of a recorded run.
type RunInfo struct {
	RunID    string
	Property string
	Value    string
}

// A RunInfoRecorder records how a run was started and when it ended.
type RunInfoRecorder struct {
	tableName string
	runID     string
	recorder  DataRecorder
	entries   []RunInfo
}

// NewRunInfoRecorder creates the run_info table.
func NewRunInfoRecorder(recorder DataRecorder, runID string) *RunInfoRecorder {
	r := &RunInfoRecorder{
		tableName: "run_info",
		runID:     runID,
		recorder:  recorder,
	}

	recorder.CreateTable(r.tableName, RunInfo{})

	return r
}

// Start notes the start time and the command line, plus extra properties.
func (r *RunInfoRecorder) Start(props map[string]string) {
	r.add("Start Time", time.Now().Format(timeLayout))
	r.add("Command", strings.Join(os.Args, " "))

	if wd, err := os.Getwd(); err == nil {
		r.add("Working Directory", wd)
	}

	for k, v := range props {
		r.add(k, v)
	}
}

// End writes the entries along with the end time and an outcome.
func (r *RunInfoRecorder) End(outcome string) {
	r.add("End Time", time.Now().Format(timeLayout))
	r.add("Outcome", outcome)

	for _, e := range r.entries {
		r.recorder.InsertData(r.tableName, e)
	}

	r.entries = nil

	r.recorder.Flush()
}

func (r *RunInfoRecorder) add(property, value string) {
	r.entries = append(r.entries, RunInfo{
		RunID:    r.runID,
		Property: property,
		Value:    value,
	})
}
