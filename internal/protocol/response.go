package protocol

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const protoVersion = "HTTP/1.1"

// Response is a status code and an optional body. No other headers exist on
// the wire.
type Response struct {
	Status int
	Body   string
}

func OK(body string) *Response {
	return &Response{Status: http.StatusOK, Body: body}
}

func BadRequest(body string) *Response {
	return &Response{Status: http.StatusBadRequest, Body: body}
}

func NotFound() *Response {
	return &Response{Status: http.StatusNotFound}
}

// Bytes renders the response in wire format.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(protoVersion)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(r.Status))
	buf.WriteByte(' ')
	buf.WriteString(http.StatusText(r.Status))
	buf.WriteString("\r\n\r\n")
	buf.WriteString(r.Body)
	return buf.Bytes()
}

// WriteTo writes the response to w. Short writes are reported as
// io.ErrShortWrite.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	data := r.Bytes()
	n, err := w.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return int64(n), errors.Wrapf(err, "write %d response", r.Status)
	}
	return int64(n), nil
}

// ParseResponse decodes a response produced by WriteTo.
func ParseResponse(data []byte) (*Response, error) {
	statusLine, body, found := strings.Cut(string(data), "\r\n\r\n")
	if !found {
		return nil, errors.Errorf("response has no header terminator: %q", data)
	}

	fields := strings.SplitN(statusLine, " ", 3)
	if len(fields) < 2 || fields[0] != protoVersion {
		return nil, errors.Errorf("malformed status line %q", statusLine)
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.Wrapf(err, "malformed status code %q", fields[1])
	}

	return &Response{Status: status, Body: body}, nil
}
