package swarm

import (
	"fmt"
	"sync"

	"github.com/banshee-data/coverage.control/internal/gradient"
)

// Mailbox is the simulated neighbour-report link: one slot per sender,
// replaced wholesale on every upload so a reader can never observe a
// half-written report set. Each slot has exactly one writer (the
// sender) and any number of readers; the round loop guarantees reads
// happen only after the write phase completes.
type Mailbox struct {
	mu         sync.RWMutex
	registered map[int]bool
	slots      map[int][]gradient.Report
}

// NewMailbox creates a mailbox for the given agent ids. Only
// registered senders may upload.
func NewMailbox(agentIDs []int) *Mailbox {
	reg := make(map[int]bool, len(agentIDs))
	for _, id := range agentIDs {
		reg[id] = true
	}
	return &Mailbox{
		registered: reg,
		slots:      make(map[int][]gradient.Report, len(agentIDs)),
	}
}

// Upload stores the sender's report set, replacing any prior entry:
// at most one pending set per sender. Reports claiming a different
// sender are malformed and rejected.
func (m *Mailbox) Upload(senderID int, reports []gradient.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.registered[senderID] {
		return fmt.Errorf("sender %d is not registered", senderID)
	}
	for _, r := range reports {
		if r.Sender != senderID {
			return fmt.Errorf("%w: sender %d uploading report claiming sender %d",
				ErrReportMismatch, senderID, r.Sender)
		}
	}
	m.slots[senderID] = append([]gradient.Report(nil), reports...)
	return nil
}

// Download returns the reports addressed to agentID across all sender
// slots. ok is false when nothing addressed to the agent has been
// uploaded; absence is signalled, never an error, because the caller
// decides whether it expected reports.
func (m *Mailbox) Download(agentID int) (reports []gradient.Report, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.registered[agentID] {
		return nil, false
	}
	for _, slot := range m.slots {
		for _, r := range slot {
			if r.Receiver == agentID {
				reports = append(reports, r)
			}
		}
	}
	return reports, len(reports) > 0
}

// Reset clears every slot at a round boundary.
func (m *Mailbox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make(map[int][]gradient.Report, len(m.registered))
}
