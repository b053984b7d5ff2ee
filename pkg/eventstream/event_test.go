package eventstream_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals NodeCompletedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NodeCompletedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeNodeCompleted,
			EventID:       "evt_123",
			RunID:         "01J0000000000000000000000",
			EmittedAt:     now,
			Source: eventstream.EventSource{
				Workspace: "/tmp/ws",
				Provider:  "ollama",
				Model:     "llama3",
			},
			Node: eventstream.NodeMeta{
				ID:       2,
				ParentID: 1,
				Role:     "user",
				Action:   "plan",
				Depth:    1,
				Status:   "success",
			},
			Answer: &eventstream.AnswerMeta{
				ID:          3,
				Interpreter: "python",
			},
			Turn: eventstream.TurnMeta{
				StartedAt:   now.Add(-2 * time.Second),
				CompletedAt: now,
				DurationMs:  2000,
			},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("run_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("node"))
		Expect(got).To(HaveKey("answer"))
		Expect(got).To(HaveKey("turn"))
	})

	It("omits the answer of a rolled back turn", func() {
		event := eventstream.NodeCompletedEvent{Turn: eventstream.TurnMeta{Failed: true, Error: "boom"}}
		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).NotTo(HaveKey("answer"))
	})

	It("stamps new events with a uuid and the current schema", func() {
		event := eventstream.NewNodeCompletedEvent("run-1", eventstream.EventSource{Provider: "ollama"}, eventstream.NodeMeta{ID: 4})
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("treeagent.node.completed"))
		Expect(event.RunID).To(Equal("run-1"))
		Expect(event.Node.ID).To(Equal(int64(4)))
		_, err := uuid.Parse(event.EventID)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.EmittedAt).NotTo(BeZero())
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil node event"))
	})
})
