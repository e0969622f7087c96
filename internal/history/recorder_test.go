package history

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/scanai/internal/scanning"
)

// mockDB is a mock implementation of DB
type mockDB struct {
	saved   []*Entry
	saveErr error
}

func (m *mockDB) SaveEntry(entry *Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, entry)
	return nil
}

func (m *mockDB) GetEntry(id string) (*Entry, error) {
	for _, e := range m.saved {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("entry not found: %s", id)
}

func (m *mockDB) ListEntries() ([]*Entry, error) { return m.saved, nil }

func (m *mockDB) Recent(n int) ([]*Entry, error) { return m.saved, nil }

func (m *mockDB) Close() error { return nil }

// mockIDGenerator is a mock implementation of IDGenerator
type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

// mockTimeSource is a mock implementation of TimeSource
type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

var _ = Describe("Recorder", func() {
	var (
		db       *mockDB
		recorder *Recorder
		now      time.Time
	)

	BeforeEach(func() {
		db = &mockDB{}
		now = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
		recorder = NewRecorderWithDeps(db, &mockIDGenerator{id: "entry-1"}, &mockTimeSource{now: now})
	})

	When("an attempt succeeds", func() {
		JustBeforeEach(func() {
			recorder.Outcome(scanning.Success(3, "req-1", &scanning.ScanResult{Sum: 7, Numbers: []int{3, 4}, DetectedText: "3 4"}))
		})

		It("saves the result", func() {
			Expect(db.saved).To(HaveLen(1))
			entry := db.saved[0]
			Expect(entry.ID).To(Equal("entry-1"))
			Expect(entry.Attempt).To(BeEquivalentTo(3))
			Expect(entry.OK).To(BeTrue())
			Expect(entry.Sum).To(Equal(7))
			Expect(entry.Numbers).To(Equal([]int{3, 4}))
			Expect(entry.DetectedText).To(Equal("3 4"))
			Expect(entry.CreatedAt).To(Equal(now))
		})

		It("records where the frame was archived", func() {
			Expect(db.saved[0].ArchiveKey).To(Equal("captures/req-1.jpg"))
		})
	})

	When("an attempt fails before a request was built", func() {
		JustBeforeEach(func() {
			recorder.Outcome(scanning.Failure(4, "", scanning.ErrNoActiveCaptureDevice))
		})

		It("saves the failure class", func() {
			entry := db.saved[0]
			Expect(entry.OK).To(BeFalse())
			Expect(entry.Reason).To(Equal("NoActiveCaptureDevice"))
			Expect(entry.Error).NotTo(BeEmpty())
			Expect(entry.ArchiveKey).To(BeEmpty())
		})
	})

	When("saving fails", func() {
		BeforeEach(func() {
			db.saveErr = errors.New("disk full")
		})

		It("does not panic", func() {
			Expect(func() {
				recorder.Outcome(scanning.Failure(1, "", scanning.ErrTransmission))
			}).NotTo(Panic())
		})
	})

	It("ignores status and scanning reports", func() {
		recorder.ServerStatus(scanning.StatusReady, "Server ready.")
		recorder.Scanning(1)
		Expect(db.saved).To(BeEmpty())
	})

	It("uses uuid ids by default", func() {
		r := NewRecorder(db)
		r.Outcome(scanning.Failure(1, "", scanning.ErrCapture))
		Expect(db.saved[0].ID).To(HaveLen(36))
	})
})
