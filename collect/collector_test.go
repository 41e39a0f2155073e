package collect

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcr/ccdb/events"
)

// captureWriter records events in memory for assertions.
type captureWriter struct {
	mu     sync.Mutex
	events []events.Event
}

func (w *captureWriter) Write(event events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) all() []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]events.Event{}, w.events...)
}

func startReport(id string, pid, ppid uint32, executable string, arguments ...string) Report {
	return Report{
		Id:        id,
		Pid:       pid,
		Ppid:      ppid,
		Timestamp: time.Now().UTC(),
		Started: &events.Execution{
			Executable: executable,
			Arguments:  append([]string{executable}, arguments...),
			WorkingDir: "/proj",
		},
	}
}

func stopReport(id string, pid uint32, status int64) Report {
	return Report{
		Id:         id,
		Pid:        pid,
		Timestamp:  time.Now().UTC(),
		Terminated: &events.Terminated{Status: status},
	}
}

func newTestCollector(t *testing.T) (*Collector, *captureWriter) {
	t.Helper()
	writer := &captureWriter{}
	collector, err := NewCollector(filepath.Join(t.TempDir(), "collector.sock"), writer)
	require.NoError(t, err)
	return collector, writer
}

func TestCollectorAssignsDenseRids(t *testing.T) {
	collector, writer := newTestCollector(t)

	first := uuid.NewString()
	second := uuid.NewString()
	collector.Report(startReport(first, 10, 1, "/usr/bin/make", "all"))
	collector.Report(startReport(second, 11, 10, "/usr/bin/gcc", "-c", "main.c"))
	collector.Report(stopReport(second, 11, 0))
	collector.Report(stopReport(first, 10, 0))
	require.NoError(t, collector.Shutdown(time.Second))

	recorded := writer.all()
	require.Len(t, recorded, 4)
	assert.Equal(t, uint64(1), recorded[0].Rid)
	assert.Equal(t, uint64(2), recorded[1].Rid)
	require.NotNil(t, recorded[1].Started)
	assert.Equal(t, uint64(1), recorded[1].Started.ParentRid)
	assert.Equal(t, uint64(2), recorded[2].Rid)
	assert.Equal(t, uint64(1), recorded[3].Rid)
}

func TestCollectorDropsStopWithoutStart(t *testing.T) {
	collector, writer := newTestCollector(t)

	collector.Report(stopReport(uuid.NewString(), 99, 1))
	require.NoError(t, collector.Shutdown(time.Second))

	assert.Empty(t, writer.all())
}

func TestCollectorReceivesReportsOverSocket(t *testing.T) {
	collector, writer := newTestCollector(t)
	reporter := NewReporter(collector.Destination())

	id := uuid.NewString()
	require.NoError(t, reporter.Send(startReport(id, 42, 1, "/usr/bin/cc", "-c", "a.c")))

	recorded := waitForEvents(t, writer, 1)
	require.NotNil(t, recorded[0].Started)
	assert.Equal(t, "/usr/bin/cc", recorded[0].Started.Execution.Executable)
	assert.Equal(t, uint32(42), recorded[0].Started.Pid)

	require.NoError(t, reporter.Send(stopReport(id, 42, 0)))
	require.NoError(t, collector.Shutdown(time.Second))

	recorded = writer.all()
	require.Len(t, recorded, 2)
	require.NotNil(t, recorded[1].Terminated)
	assert.Equal(t, recorded[0].Rid, recorded[1].Rid)
}

// waitForEvents polls until the writer has seen at least n events.
func waitForEvents(t *testing.T, writer *captureWriter, n int) []events.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		recorded := writer.all()
		if len(recorded) >= n {
			return recorded
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, have %d", n, len(recorded))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorSurvivesMalformedReport(t *testing.T) {
	collector, writer := newTestCollector(t)

	conn, err := net.Dial("unix", collector.Destination())
	require.NoError(t, err)
	require.NoError(t, events.WriteFrame(conn, []byte("{not json")))
	conn.Close()

	reporter := NewReporter(collector.Destination())
	require.NoError(t, reporter.Send(startReport(uuid.NewString(), 7, 1, "/usr/bin/cc", "-c", "b.c")))
	require.NoError(t, collector.Shutdown(time.Second))

	recorded := writer.all()
	require.Len(t, recorded, 1)
	require.NotNil(t, recorded[0].Started)
}

func TestCollectorConcurrentReporters(t *testing.T) {
	collector, writer := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(pid uint32) {
			defer wg.Done()
			reporter := NewReporter(collector.Destination())
			reporter.Send(startReport(uuid.NewString(), pid, 1, "/usr/bin/cc", "-c", "x.c"))
		}(uint32(100 + i))
	}
	wg.Wait()
	require.NoError(t, collector.Shutdown(2*time.Second))

	recorded := writer.all()
	require.Len(t, recorded, 8)
	seen := make(map[uint64]bool)
	for _, event := range recorded {
		require.NotNil(t, event.Started)
		assert.False(t, seen[event.Rid], "rid %d assigned twice", event.Rid)
		seen[event.Rid] = true
	}
	assert.Len(t, seen, 8)
}

func TestCollectorShutdownIsIdempotent(t *testing.T) {
	collector, _ := newTestCollector(t)

	require.NoError(t, collector.Shutdown(time.Second))
	require.NoError(t, collector.Shutdown(time.Second))
}
