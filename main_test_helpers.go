package main

import (
	"bytes"
	"testing"

	"github.com/leafdb/leafdb/internal/logging"
)

// useBufferWriters swaps stdOut/stdErr (and the logger's default sink) with
// in-memory buffers for the duration of a test, allowing assertions on CLI
// output without polluting test logs.
func useBufferWriters(t *testing.T) {
	t.Helper()

	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	prevOut := stdOut
	prevErr := stdErr
	prevLog := logging.Stderr

	stdOut = outBuf
	stdErr = errBuf
	logging.Stderr = errBuf

	t.Cleanup(func() {
		stdOut = prevOut
		stdErr = prevErr
		logging.Stderr = prevLog
	})
}

// stdOutBuffer returns the in-use stdout buffer when useBufferWriters is active.
func stdOutBuffer() *bytes.Buffer {
	buf, _ := stdOut.(*bytes.Buffer)
	return buf
}

// stdErrBuffer returns the in-use stderr buffer when useBufferWriters is active.
func stdErrBuffer() *bytes.Buffer {
	buf, _ := stdErr.(*bytes.Buffer)
	return buf
}
