package collect

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/rcr/ccdb/events"
)

// sendTimeout bounds one report delivery; past it the reporter gives up and
// lets the build continue.
const sendTimeout = 5 * time.Second

// Reporter is the client side of the collector endpoint. Delivery is
// best-effort: a lost report costs at most a missing entry.
type Reporter struct {
	destination string
}

// NewReporter builds a reporter for the given session locator.
func NewReporter(destination string) *Reporter {
	return &Reporter{destination: destination}
}

// Send delivers one report. Dialing retries with exponential backoff within
// the send timeout; failures are logged at debug level and returned so the
// caller can decide whether to care.
func (r *Reporter) Send(report Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %v", err)
	}

	conn, err := r.dial()
	if err != nil {
		log.Debugf("failed to reach collector at %s: %v", r.destination, err)
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if err := events.WriteFrame(conn, payload); err != nil {
		log.Debugf("failed to deliver report: %v", err)
		return err
	}
	return nil
}

func (r *Reporter) dial() (net.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = sendTimeout

	var conn net.Conn
	err := backoff.Retry(func() error {
		var dialErr error
		conn, dialErr = net.DialTimeout("unix", r.destination, sendTimeout)
		return dialErr
	}, policy)
	return conn, err
}
