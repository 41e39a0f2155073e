package collect

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rcr/ccdb/events"
)

// pidMap is a thread-safe map from reporter pid to the Rid of its start
// event, used to resolve parent ids for incoming reports.
type pidMap struct {
	rids map[uint32]uint64
	mu   sync.RWMutex
}

func newPidMap() *pidMap {
	return &pidMap{rids: make(map[uint32]uint64)}
}

func (pm *pidMap) Add(pid uint32, rid uint64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.rids[pid] = rid
}

func (pm *pidMap) Get(pid uint32) (uint64, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	rid, exists := pm.rids[pid]
	return rid, exists
}

// Collector accepts execution reports on a unix socket, assigns dense
// monotonic ids and appends events to the log in receipt order.
type Collector struct {
	listener     net.Listener
	writer       events.Writer
	reports      chan Report
	nextRid      uint64
	pids         *pidMap
	correlations map[string]uint64
	corrMu       sync.Mutex
	connections  sync.WaitGroup
	done         chan struct{}
	writerDone   chan struct{}
	closeOnce    sync.Once
}

// NewCollector opens the endpoint at socketPath and starts accepting.
// Events flow into the given writer from a single goroutine.
func NewCollector(socketPath string, writer events.Writer) (*Collector, error) {
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open collector endpoint: %v", err)
	}

	c := &Collector{
		listener:     listener,
		writer:       writer,
		reports:      make(chan Report, 1000),
		pids:         newPidMap(),
		correlations: make(map[string]uint64),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	go c.writeLoop()
	go c.acceptLoop()
	return c, nil
}

// Destination returns the session locator descendants dial.
func (c *Collector) Destination() string {
	return c.listener.Addr().String()
}

// Report feeds a locally generated report (the supervised root) into the
// same pipeline remote reporters use.
func (c *Collector) Report(report Report) {
	select {
	case c.reports <- report:
	case <-c.done:
		log.Debugf("discarding report %s after shutdown", report.Id)
	}
}

func (c *Collector) acceptLoop() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			// Closed listener means shutdown.
			return
		}
		c.connections.Add(1)
		go c.serve(conn)
	}
}

// serve drains one reporter connection. A malformed report is dropped with
// a warning; connection errors never tear down the session.
func (c *Collector) serve(conn net.Conn) {
	defer c.connections.Done()
	defer conn.Close()

	for {
		payload, err := events.ReadFrame(conn)
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Warnf("dropping report connection: %v", err)
			return
		}

		var report Report
		if err := json.Unmarshal(payload, &report); err != nil {
			log.Warnf("dropping malformed report: %v", err)
			continue
		}
		c.Report(report)
	}
}

// writeLoop is the single consumer of the report channel; it serializes all
// log writes. On shutdown it drains whatever is still buffered.
func (c *Collector) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case report := <-c.reports:
			c.record(report)
		case <-c.done:
			for {
				select {
				case report := <-c.reports:
					c.record(report)
				default:
					return
				}
			}
		}
	}
}

func (c *Collector) record(report Report) {
	switch {
	case report.Started != nil:
		rid := atomic.AddUint64(&c.nextRid, 1)
		parentRid, _ := c.pids.Get(report.Ppid)
		c.pids.Add(report.Pid, rid)
		c.correlate(report.Id, rid)

		event := events.Event{
			Rid:       rid,
			Timestamp: report.Timestamp,
			Started: &events.Started{
				Execution: *report.Started,
				Pid:       report.Pid,
				Ppid:      report.Ppid,
				ParentRid: parentRid,
			},
		}
		c.write(event)

	case report.Terminated != nil:
		rid, exists := c.resolveCorrelation(report.Id)
		if !exists {
			log.Warnf("dropping stop report with unknown id %s", report.Id)
			return
		}
		c.write(events.Event{Rid: rid, Timestamp: report.Timestamp, Terminated: report.Terminated})

	case report.Signalled != nil:
		rid, exists := c.resolveCorrelation(report.Id)
		if !exists {
			log.Warnf("dropping signal report with unknown id %s", report.Id)
			return
		}
		c.write(events.Event{Rid: rid, Timestamp: report.Timestamp, Signalled: report.Signalled})

	default:
		log.Warnf("dropping report %s with no body", report.Id)
	}
}

func (c *Collector) write(event events.Event) {
	if err := c.writer.Write(event); err != nil {
		log.Errorf("failed to write event %d: %v", event.Rid, err)
	}
}

func (c *Collector) correlate(id string, rid uint64) {
	c.corrMu.Lock()
	defer c.corrMu.Unlock()
	c.correlations[id] = rid
}

func (c *Collector) resolveCorrelation(id string) (uint64, bool) {
	c.corrMu.Lock()
	defer c.corrMu.Unlock()
	rid, exists := c.correlations[id]
	return rid, exists
}

// Shutdown stops accepting new reports, waits for in-flight connections
// until the quiescence timeout, then flushes the writer pipeline.
func (c *Collector) Shutdown(quiescence time.Duration) error {
	var err error
	c.closeOnce.Do(func() {
		err = c.listener.Close()

		drained := make(chan struct{})
		go func() {
			c.connections.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(quiescence):
			log.Warnf("giving up on %s quiescence wait; some reports may be lost", quiescence)
		}

		close(c.done)
		<-c.writerDone
	})
	return err
}
