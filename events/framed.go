package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// framedWriter appends length-prefixed JSON records to a plain file.
type framedWriter struct {
	file *os.File
	buf  *bufio.Writer
}

func newFramedWriter(path string) (*framedWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %v", err)
	}
	return &framedWriter{file: file, buf: bufio.NewWriter(file)}, nil
}

func (w *framedWriter) Write(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}
	return WriteFrame(w.buf, payload)
}

func (w *framedWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush event log: %v", err)
	}
	return w.file.Close()
}

// framedReader streams records back out of a framed log file. Unknown JSON
// fields are ignored so newer writers stay readable; a truncated trailing
// record ends the stream with a warning instead of an error.
type framedReader struct {
	file *os.File
	buf  *bufio.Reader
}

func newFramedReader(path string) (*framedReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %v", err)
	}
	return &framedReader{file: file, buf: bufio.NewReader(file)}, nil
}

func (r *framedReader) Read() (*Event, error) {
	payload, err := ReadFrame(r.buf)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err == ErrTruncated {
		log.Warnf("event log ends with a truncated record; ignoring it")
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %v", err)
	}
	return &event, nil
}

func (r *framedReader) Close() error {
	return r.file.Close()
}
