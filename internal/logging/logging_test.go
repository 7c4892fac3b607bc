package logging_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/m7moud/queue-broker/internal/logging"
)

var _ = Describe("New", func() {
	It("should emit JSON with structured fields by default", func() {
		var buf bytes.Buffer
		logger, err := logging.NewWithOutput(logging.DefaultConfig(), &buf)
		Expect(err).NotTo(HaveOccurred())

		logger.WithField("queue", "q1").Info("created")

		var entry map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
		Expect(entry).To(HaveKeyWithValue("queue", "q1"))
		Expect(entry).To(HaveKeyWithValue("msg", "created"))
	})

	It("should honour the configured level", func() {
		var buf bytes.Buffer
		logger, err := logging.NewWithOutput(logging.Config{Level: "warn", Format: "text"}, &buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(logger.GetLevel()).To(Equal(logrus.WarnLevel))

		logger.Info("hidden")
		Expect(buf.Len()).To(BeZero())
	})

	It("should reject unknown levels and formats", func() {
		_, err := logging.New(logging.Config{Level: "loud", Format: "json"})
		Expect(err).To(HaveOccurred())
		_, err = logging.New(logging.Config{Level: "info", Format: "xml"})
		Expect(err).To(HaveOccurred())
	})
})
