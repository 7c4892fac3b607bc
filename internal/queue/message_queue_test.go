package queue_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/m7moud/queue-broker/internal/queue"
)

var _ = Describe("MessageQueue", func() {
	var mq *queue.MessageQueue

	BeforeEach(func() {
		mq = queue.NewMessageQueue()
	})

	It("should return messages in the order they were added", func() {
		for i := 1; i <= 5; i++ {
			Expect(mq.AddMessage(fmt.Sprintf("m%d", i))).To(Succeed())
		}
		Expect(mq.Len()).To(Equal(5))

		for i := 1; i <= 5; i++ {
			msg, err := mq.RetrieveMessage()
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal(fmt.Sprintf("m%d", i)))
		}
		Expect(mq.Len()).To(BeZero())
	})

	It("should return the empty message when nothing is queued", func() {
		msg, err := mq.RetrieveMessage()
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(BeEmpty())

		Expect(mq.AddMessage("only")).To(Succeed())
		Expect(mq.RetrieveMessage()).To(Equal("only"))

		msg, err = mq.RetrieveMessage()
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(BeEmpty())
	})

	It("should keep FIFO order when adds and retrieves interleave", func() {
		Expect(mq.AddMessage("a")).To(Succeed())
		Expect(mq.AddMessage("b")).To(Succeed())
		Expect(mq.RetrieveMessage()).To(Equal("a"))
		Expect(mq.AddMessage("c")).To(Succeed())
		Expect(mq.RetrieveMessage()).To(Equal("b"))
		Expect(mq.RetrieveMessage()).To(Equal("c"))
	})

	It("should not lose or duplicate messages under concurrent producers and consumers", func() {
		const n = 200
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(mq.AddMessage(fmt.Sprintf("msg-%d", i))).To(Succeed())
			}(i)
		}

		seen := make(chan string, n)
		for i := 0; i < n/2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				msg, err := mq.RetrieveMessage()
				Expect(err).NotTo(HaveOccurred())
				if msg != "" {
					seen <- msg
				}
			}()
		}
		wg.Wait()

		for mq.Len() > 0 {
			msg, err := mq.RetrieveMessage()
			Expect(err).NotTo(HaveOccurred())
			seen <- msg
		}
		close(seen)

		unique := make(map[string]int)
		for msg := range seen {
			unique[msg]++
		}
		Expect(unique).To(HaveLen(n))
		for msg, count := range unique {
			Expect(count).To(Equal(1), "message %s delivered more than once", msg)
		}
	})
})
