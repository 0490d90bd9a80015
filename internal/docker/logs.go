package docker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Multiplexed log frame header: byte 0 carries the stream id, bytes 4-7
// the big-endian payload length.
const (
	logHeaderLen = 8
	stderrStream = 2
)

// DemuxLogs splits a multiplexed container log stream into stdout and
// stderr writers. Frames that are not stderr land on stdout, so no
// output is lost whatever stream id the engine tags them with.
func DemuxLogs(dstOut, dstErr io.Writer, src io.Reader) error {
	br := bufio.NewReader(src)

	var hdr [logHeaderLen]byte
	var buf []byte
	for {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			// The stream ends with the container.
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		n := int(binary.BigEndian.Uint32(hdr[4:]))
		if n == 0 {
			continue
		}
		if cap(buf) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err := io.ReadFull(br, buf); err != nil {
			return fmt.Errorf("read log frame: %w", err)
		}

		w := dstOut
		if hdr[0] == stderrStream {
			w = dstErr
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
}
