package dispatch_test

import (
	"fmt"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/m7moud/queue-broker/internal/dispatch"
	"github.com/m7moud/queue-broker/internal/metrics"
	"github.com/m7moud/queue-broker/internal/protocol"
	"github.com/m7moud/queue-broker/internal/queue"
)

func request(method, path, body string) *protocol.Request {
	raw := fmt.Sprintf("%s %s HTTP/1.1\r\n\r\n%s", method, path, body)
	req, err := protocol.ParseRequest([]byte(raw))
	Expect(err).NotTo(HaveOccurred())
	return req
}

var _ = Describe("Dispatcher", func() {
	var (
		registry   *queue.Registry
		dispatcher *dispatch.Dispatcher
		hook       *test.Hook
	)

	BeforeEach(func() {
		var logger *logrus.Logger
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)

		registry = queue.NewRegistry()
		dispatcher = dispatch.NewDispatcher(registry, logger)
	})

	do := func(method, path, body string) *protocol.Response {
		return dispatcher.Dispatch(request(method, path, body))
	}

	Describe("POST /new/{name}", func() {
		It("should create the queue once and reject duplicates", func() {
			Expect(do(http.MethodPost, "/new/q1", "")).To(Equal(protocol.OK("")))

			resp := do(http.MethodPost, "/new/q1", "")
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.Body).To(Equal("Queue 'q1' already exists"))
			Expect(registry.Names()).To(Equal([]string{"q1"}))
		})

		It("should not affect other queues", func() {
			Expect(do(http.MethodPost, "/new/other", "").Status).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/add/other", "keep").Status).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/new/q1", "").Status).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/new/q1", "").Status).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/get/other", "").Body).To(Equal("keep"))
		})

		It("should log the creation", func() {
			do(http.MethodPost, "/new/q1", "")
			Expect(hook.LastEntry()).NotTo(BeNil())
			Expect(hook.LastEntry().Message).To(Equal("created queue"))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("queue", "q1"))
		})
	})

	Describe("DELETE /delete/{name}", func() {
		It("should delete an existing queue", func() {
			Expect(registry.Create("q1")).To(Succeed())
			Expect(do(http.MethodDelete, "/delete/q1", "")).To(Equal(protocol.OK("")))
			Expect(registry.Len()).To(BeZero())
		})

		// Missing queues are a 400 here but a 404 for get and add.
		It("should answer 400 with an explanation for a missing queue", func() {
			Expect(registry.Create("q1")).To(Succeed())

			resp := do(http.MethodDelete, "/delete/ghost", "")
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.Body).To(Equal("Queue 'ghost' cannot be removed as it does not exist"))
			Expect(registry.Names()).To(Equal([]string{"q1"}))
		})
	})

	Describe("GET /get/{name}", func() {
		It("should return the empty message for an empty queue", func() {
			Expect(registry.Create("q1")).To(Succeed())
			Expect(do(http.MethodGet, "/get/q1", "")).To(Equal(protocol.OK("")))
		})

		It("should answer 404 with no body for a missing queue", func() {
			Expect(do(http.MethodGet, "/get/ghost", "")).To(Equal(protocol.NotFound()))
		})

		It("should return messages in FIFO order", func() {
			Expect(registry.Create("q1")).To(Succeed())
			for i := 1; i <= 3; i++ {
				Expect(do(http.MethodPost, "/add/q1", fmt.Sprintf("m%d", i)).Status).To(Equal(http.StatusOK))
			}
			for i := 1; i <= 3; i++ {
				Expect(do(http.MethodGet, "/get/q1", "").Body).To(Equal(fmt.Sprintf("m%d", i)))
			}
		})
	})

	Describe("POST /add/{name}", func() {
		It("should answer 404 with no body for a missing queue", func() {
			Expect(do(http.MethodPost, "/add/ghost", "hello")).To(Equal(protocol.NotFound()))
			Expect(registry.Len()).To(BeZero())
		})

		It("should store a multi line body as one message", func() {
			Expect(registry.Create("q1")).To(Succeed())
			Expect(do(http.MethodPost, "/add/q1", "hello\nworld").Status).To(Equal(http.StatusOK))

			Expect(do(http.MethodGet, "/get/q1", "")).To(Equal(protocol.OK("hello\nworld")))
			Expect(do(http.MethodGet, "/get/q1", "")).To(Equal(protocol.OK("")))
		})

		It("should count enqueued and dequeued messages", func() {
			enqueued, dequeued := metrics.EnqueuedCount(), metrics.DequeuedCount()
			Expect(registry.Create("q1")).To(Succeed())
			do(http.MethodPost, "/add/q1", "x")
			do(http.MethodGet, "/get/q1", "")
			do(http.MethodGet, "/get/q1", "")

			Expect(metrics.EnqueuedCount()).To(Equal(enqueued + 1))
			Expect(metrics.DequeuedCount()).To(Equal(dequeued + 1))
		})
	})

	Describe("routing", func() {
		It("should keep slashes in queue names", func() {
			Expect(do(http.MethodPost, "/new/team/jobs", "").Status).To(Equal(http.StatusOK))
			Expect(registry.Names()).To(Equal([]string{"team/jobs"}))
			Expect(do(http.MethodPost, "/add/team/jobs", "x").Status).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/get/team/jobs", "").Body).To(Equal("x"))
			Expect(do(http.MethodGet, "/get/team", "")).To(Equal(protocol.NotFound()))
		})

		DescribeTable("unknown routes answer 404",
			func(method, path string) {
				before := metrics.RequestCount(dispatch.OpUnknown, http.StatusNotFound)
				Expect(dispatcher.Dispatch(request(method, path, ""))).To(Equal(protocol.NotFound()))
				Expect(metrics.RequestCount(dispatch.OpUnknown, http.StatusNotFound)).To(Equal(before + 1))
			},
			Entry("unknown path", http.MethodGet, "/status"),
			Entry("lower case method", "post", "/new/q1"),
			Entry("wrong method for create", http.MethodGet, "/new/q1"),
			Entry("wrong method for get", http.MethodPost, "/get/q1"),
			Entry("upper case prefix", http.MethodPost, "/NEW/q1"),
			Entry("prefix without name", http.MethodPost, "/new/"),
			Entry("prefix without trailing slash", http.MethodGet, "/get"),
		)
	})

	It("should deliver every concurrently added message exactly once", func() {
		const n = 64
		Expect(do(http.MethodPost, "/new/shared", "").Status).To(Equal(http.StatusOK))

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				resp := dispatcher.Dispatch(request(http.MethodPost, "/add/shared", fmt.Sprintf("m%d", i)))
				Expect(resp.Status).To(Equal(http.StatusOK))
			}(i)
		}
		wg.Wait()

		got := make([]string, 0, n)
		expected := make([]string, 0, n)
		for i := 0; i < n; i++ {
			got = append(got, do(http.MethodGet, "/get/shared", "").Body)
			expected = append(expected, fmt.Sprintf("m%d", i))
		}
		Expect(got).To(ConsistOf(expected))
	})
})
