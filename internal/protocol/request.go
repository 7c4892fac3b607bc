package protocol

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const readChunkSize = 4096

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrRequestTooLarge  = errors.New("request too large")
)

// Request is one decoded request. Header holds the header lines following the
// request line; Body holds the lines after the first blank line, verbatim.
type Request struct {
	Method string
	Path   string
	Header []string
	Body   []string
}

// Message returns the whole body as a single message.
func (r *Request) Message() string {
	return strings.Join(r.Body, "\n")
}

// ReadRequest reads the raw bytes of a single request from r. It stops at EOF,
// at a read deadline, or once the header terminator has been seen and no more
// data was pending. Reading more than limit bytes fails with ErrRequestTooLarge;
// a limit of zero or less disables the check.
func ReadRequest(r io.Reader, limit int) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])

		if limit > 0 && buf.Len() > limit {
			return nil, errors.Wrapf(ErrRequestTooLarge, "read %d bytes, limit %d", buf.Len(), limit)
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				return buf.Bytes(), nil
			}
			return nil, errors.Wrap(err, "read request")
		}

		if n < len(chunk) && hasHeaderTerminator(buf.Bytes()) {
			return buf.Bytes(), nil
		}
	}
}

func hasHeaderTerminator(data []byte) bool {
	return bytes.Contains(data, []byte("\n\r\n")) || bytes.Contains(data, []byte("\n\n"))
}

// SplitRequest splits raw request bytes into header lines and body lines. The
// first blank line separates the two and belongs to neither.
func SplitRequest(data []byte) (header, body []string) {
	if len(data) == 0 {
		return nil, nil
	}

	inHeader := true
	for _, line := range strings.Split(string(data), "\n") {
		if inHeader {
			if line == "\r" || line == "" {
				inHeader = false
				continue
			}
			header = append(header, strings.TrimSuffix(line, "\r"))
			continue
		}
		body = append(body, line)
	}
	return header, body
}

// ParseRequest decodes raw request bytes. Only the first two space separated
// tokens of the request line are used.
func ParseRequest(data []byte) (*Request, error) {
	header, body := SplitRequest(data)
	if len(header) == 0 {
		return nil, errors.Wrap(ErrMalformedRequest, "no request line")
	}

	tokens := strings.Split(header[0], " ")
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return nil, errors.Wrapf(ErrMalformedRequest, "request line %q", header[0])
	}

	return &Request{
		Method: tokens[0],
		Path:   tokens[1],
		Header: header[1:],
		Body:   body,
	}, nil
}
