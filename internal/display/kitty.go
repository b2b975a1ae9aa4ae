package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

// KittyEncoder writes png data as kitty graphics protocol escapes.
type KittyEncoder struct {
	out     io.Writer
	columns int
}

// NewKittyEncoder returns an encoder. columns <= 0 leaves sizing to the
// terminal.
func NewKittyEncoder(out io.Writer, columns int) *KittyEncoder {
	return &KittyEncoder{out: out, columns: columns}
}

func (e *KittyEncoder) Encode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	chunks := splitIntoChunks(encoded, chunkSize)

	for i, chunk := range chunks {
		var params string
		if i == 0 {
			params = e.header()
			if len(chunks) > 1 {
				params += ",m=1"
			}
		} else if i == len(chunks)-1 {
			params = "m=0"
		} else {
			params = "m=1"
		}

		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, params, chunk, escapeEnd); err != nil {
			return err
		}
	}
	return nil
}

func (e *KittyEncoder) header() string {
	h := "a=T,f=100,q=2"
	if e.columns > 0 {
		h += fmt.Sprintf(",c=%d", e.columns)
	}
	return h
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		n := min(size, len(s))
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}
