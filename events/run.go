package events

import (
	"fmt"
	"io"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// Run is one completed execution folded together from its start, stop and
// signal records.
type Run struct {
	Rid          uint64
	ParentRid    uint64
	Pid          uint32
	Ppid         uint32
	Execution    Execution
	StartedAt    time.Time
	TerminatedAt time.Time
	ExitStatus   *int64
	Signal       *int32
}

// Resolve drains a reader and folds the interleaved records into completed
// runs, ordered by Rid. A stop record without a matching start is dropped
// with a warning; a start without a stop yields a run with no exit status.
func Resolve(reader Reader) ([]Run, error) {
	open := make(map[uint64]*Run)
	var order []uint64

	for {
		event, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event log: %v", err)
		}

		switch {
		case event.Started != nil:
			open[event.Rid] = &Run{
				Rid:       event.Rid,
				ParentRid: event.Started.ParentRid,
				Pid:       event.Started.Pid,
				Ppid:      event.Started.Ppid,
				Execution: event.Started.Execution,
				StartedAt: event.Timestamp,
			}
			order = append(order, event.Rid)
		case event.Terminated != nil:
			run, exists := open[event.Rid]
			if !exists {
				log.Warnf("dropping stop record for unknown execution %d", event.Rid)
				continue
			}
			status := event.Terminated.Status
			run.ExitStatus = &status
			run.TerminatedAt = event.Timestamp
		case event.Signalled != nil:
			run, exists := open[event.Rid]
			if !exists {
				log.Warnf("dropping signal record for unknown execution %d", event.Rid)
				continue
			}
			number := event.Signalled.Number
			run.Signal = &number
			run.TerminatedAt = event.Timestamp
		default:
			log.Warnf("dropping record %d with no body", event.Rid)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	runs := make([]Run, 0, len(order))
	for _, rid := range order {
		runs = append(runs, *open[rid])
	}
	return runs, nil
}
