package protocol_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/m7moud/queue-broker/internal/protocol"
)

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

var _ = Describe("Response", func() {
	DescribeTable("wire format",
		func(resp *protocol.Response, expected string) {
			var buf bytes.Buffer
			n, err := resp.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(len(expected))))
			Expect(buf.String()).To(Equal(expected))
		},
		Entry("ok without body", protocol.OK(""), "HTTP/1.1 200 OK\r\n\r\n"),
		Entry("ok with body", protocol.OK("hello\nworld"), "HTTP/1.1 200 OK\r\n\r\nhello\nworld"),
		Entry("bad request", protocol.BadRequest("Queue 'q1' already exists"), "HTTP/1.1 400 Bad Request\r\n\r\nQueue 'q1' already exists"),
		Entry("not found", protocol.NotFound(), "HTTP/1.1 404 Not Found\r\n\r\n"),
	)

	It("should report short writes", func() {
		_, err := protocol.OK("body").WriteTo(shortWriter{})
		Expect(err).To(MatchError(io.ErrShortWrite))
	})

	It("should report writer failures", func() {
		_, err := protocol.NotFound().WriteTo(failingWriter{})
		Expect(err).To(MatchError(io.ErrClosedPipe))
	})

	Describe("ParseResponse", func() {
		It("should decode what WriteTo produced", func() {
			resp, err := protocol.ParseResponse(protocol.BadRequest("nope").Bytes())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp).To(Equal(protocol.BadRequest("nope")))
		})

		It("should reject garbage", func() {
			_, err := protocol.ParseResponse([]byte("hello"))
			Expect(err).To(HaveOccurred())
			_, err = protocol.ParseResponse([]byte("HTTP/1.1 abc OK\r\n\r\n"))
			Expect(err).To(HaveOccurred())
		})
	})
})
