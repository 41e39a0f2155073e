package collect

import (
	"time"

	"github.com/rcr/ccdb/events"
)

// Report is one message from a reporter to the collector. Id is the
// reporter-chosen correlation token linking a start report with the stop
// report of the same execution; the collector translates it into the
// log-side Rid and never writes it out.
type Report struct {
	Id         string             `json:"id"`
	Pid        uint32             `json:"pid"`
	Ppid       uint32             `json:"ppid"`
	Timestamp  time.Time          `json:"timestamp"`
	Started    *events.Execution  `json:"started,omitempty"`
	Terminated *events.Terminated `json:"terminated,omitempty"`
	Signalled  *events.Signalled  `json:"signalled,omitempty"`
}
