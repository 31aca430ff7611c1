// Package actionstats aggregates how often each handler action is executed and how often it resolves to a no-op
// across the workers of a campaign.
package actionstats

import (
	"context"
	"sync"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/handler"
)

// ActionStatistics collects an ActionReport for every tested call sequence and merges them on a background
// goroutine, so workers never contend over the aggregate.
type ActionStatistics struct {
	incomingReportsQueue chan *ActionReport

	aggReport     *ActionReport
	aggReportLock sync.Mutex
}

// NewActionStatistics creates an ActionStatistics with an empty aggregate.
func NewActionStatistics() *ActionStatistics {
	return &ActionStatistics{
		incomingReportsQueue: make(chan *ActionReport, 100),
		aggReport:            NewActionReport(),
	}
}

// StartWorker starts the goroutine merging incoming reports. It exits once ctx is done or the returned function is
// called. The returned function blocks until every report queued before the call is merged.
func (s *ActionStatistics) StartWorker(ctx context.Context) func() {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case report := <-s.incomingReportsQueue:
				s.merge(report)
			case <-workerCtx.Done():
				// Drain what was queued before we were stopped.
				for {
					select {
					case report := <-s.incomingReportsQueue:
						s.merge(report)
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// OnCallSequenceTested queues a report of the executed calls of a tested call sequence. It must only be called while
// the worker started by StartWorker runs.
func (s *ActionStatistics) OnCallSequenceTested(sequence calls.CallSequence) error {
	report := NewActionReport()
	for _, element := range sequence {
		if !element.Executed {
			continue
		}
		report.addCall(element.Call.Kind, element.Outcome == handler.OutcomeNoOp)
	}
	s.incomingReportsQueue <- report
	return nil
}

// Report returns a copy of the aggregate report.
func (s *ActionStatistics) Report() *ActionReport {
	s.aggReportLock.Lock()
	defer s.aggReportLock.Unlock()
	return s.aggReport.clone()
}

func (s *ActionStatistics) merge(report *ActionReport) {
	s.aggReportLock.Lock()
	defer s.aggReportLock.Unlock()
	s.aggReport.concatReports(report)
}
