package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/treeagent/pkg/eventstream"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
	deadline time.Time
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	w.deadline, _ = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		p      *Publisher
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		p = newPublisher(writer, time.Second)
	})

	It("requires brokers and a topic", func() {
		_, err := NewPublisher(Config{Topic: "nodes"})
		Expect(err).To(HaveOccurred())
		_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer for a valid config", func() {
		pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "nodes"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.timeout).To(Equal(defaultWriteTimeout))
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		Expect(p.PublishNode(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("writes the event as JSON keyed by run id", func() {
		event := eventstream.NewNodeCompletedEvent("run-7", eventstream.EventSource{Provider: "ollama"}, eventstream.NodeMeta{ID: 3, Action: "plan"})
		Expect(p.PublishNode(context.Background(), event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("run-7"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeNodeCompleted)}))

		var decoded eventstream.NodeCompletedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Node.Action).To(Equal("plan"))
	})

	It("bounds each write with the configured timeout", func() {
		event := eventstream.NewNodeCompletedEvent("run-1", eventstream.EventSource{}, eventstream.NodeMeta{})
		Expect(p.PublishNode(context.Background(), event)).To(Succeed())
		Expect(writer.deadline).NotTo(BeZero())
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewNodeCompletedEvent("run-1", eventstream.EventSource{}, eventstream.NodeMeta{})
		err := p.PublishNode(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
