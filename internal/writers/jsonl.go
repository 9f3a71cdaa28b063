// internal/writers/jsonl.go
package writers

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"forcepmf/internal/output"
	"forcepmf/pkg/api"
)

// Line writers share 64 KiB buffers.
var bufPool = sync.Pool{
	New: func() any { return bufio.NewWriterSize(io.Discard, 64<<10) },
}

// StartLineWriter spins up a goroutine that encodes every value received on
// the returned channel as one JSON line. Close the channel, then read the
// error channel once.
func StartLineWriter[T any](out io.Writer, bufSize int) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bufPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bufPool.Put(bw)
		}()
		enc := json.NewEncoder(bw)
		var err error
		for v := range in {
			if err != nil {
				continue // drain so senders never block
			}
			err = enc.Encode(v)
		}
		if err == nil {
			err = bw.Flush()
		}
		if IsBrokenPipe(err) {
			err = nil
		}
		done <- err
	}()
	return in, done
}

// WriteReportJSONL writes one line per ensemble offset, then one per PMF bin.
func WriteReportJSONL(w io.Writer, r output.Report) error {
	in, done := StartLineWriter[api.LineV1](w, 0)
	for _, o := range output.Offsets(r) {
		in <- api.LineV1{RunID: r.RunID, Kind: "offset", Offset: &o}
	}
	if r.Profile != nil {
		for _, b := range output.Bins(r.Profile) {
			in <- api.LineV1{RunID: r.RunID, Kind: "pmf", Bin: &b}
		}
	}
	close(in)
	return <-done
}
