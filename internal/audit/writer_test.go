package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/document-management/internal/audit"
)

func TestAuditWriter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

// Mock sink collecting appended entries
type mockSink struct {
	mu      sync.Mutex
	entries []*audit.Entry

	appendError error
	// gate, when set, blocks Append until released; used to fill the queue.
	gate chan struct{}
}

func (m *mockSink) Append(_ context.Context, entry *audit.Entry) error {
	if m.gate != nil {
		<-m.gate
	}
	if m.appendError != nil {
		return m.appendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockSink) last() *audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

var _ = Describe("Writer", func() {
	var (
		sink   *mockSink
		logger *slog.Logger
	)

	BeforeEach(func() {
		sink = &mockSink{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Describe("Record", func() {
		It("should deliver entries to the sink asynchronously", func() {
			w := audit.NewWriter(sink, 16, logger)
			defer w.Close()

			resourceID := int64(7)
			w.Record(1, audit.ActionDocumentCreate, &resourceID, map[string]any{"title": "Quality Manual"})

			Eventually(sink.count).Should(Equal(1))
			entry := sink.last()
			Expect(entry.ActorID).To(Equal(int64(1)))
			Expect(entry.Action).To(Equal(audit.ActionDocumentCreate))
			Expect(*entry.ResourceID).To(Equal(int64(7)))
			Expect(entry.ID).ToNot(BeEmpty())
			Expect(w.Written()).To(Equal(uint64(1)))
		})

		It("should count sink failures as dropped without surfacing them", func() {
			sink.appendError = errors.New("disk full")
			w := audit.NewWriter(sink, 16, logger)
			defer w.Close()

			w.Record(1, audit.ActionDocumentTransition, nil, nil)

			Eventually(w.Dropped).Should(Equal(uint64(1)))
			Expect(w.Written()).To(Equal(uint64(0)))
		})

		It("should drop rather than block when the queue is full", func() {
			sink.gate = make(chan struct{})
			w := audit.NewWriter(sink, 1, logger)

			// First entry occupies the writer goroutine, second fills the
			// queue, the rest must be dropped immediately.
			w.Record(1, audit.ActionDocumentCreate, nil, nil)
			time.Sleep(20 * time.Millisecond)
			w.Record(1, audit.ActionDocumentCreate, nil, nil)
			w.Record(1, audit.ActionDocumentCreate, nil, nil)
			w.Record(1, audit.ActionDocumentCreate, nil, nil)

			Expect(w.Dropped()).To(BeNumerically(">=", uint64(1)))

			close(sink.gate)
			w.Close()
		})
	})

	Describe("Close", func() {
		It("should drain queued entries before returning", func() {
			w := audit.NewWriter(sink, 16, logger)
			for i := 0; i < 5; i++ {
				w.Record(int64(i), audit.ActionDocumentTransition, nil, nil)
			}

			w.Close()
			Expect(sink.count()).To(Equal(5))
			Expect(w.Written()).To(Equal(uint64(5)))
		})

		It("should drop entries recorded after close", func() {
			w := audit.NewWriter(sink, 16, logger)
			w.Close()

			w.Record(1, audit.ActionDocumentCreate, nil, nil)
			Expect(w.Dropped()).To(Equal(uint64(1)))
			Expect(sink.count()).To(Equal(0))
		})

		It("should be safe to close twice", func() {
			w := audit.NewWriter(sink, 16, logger)
			w.Close()
			w.Close()
		})
	})
})
