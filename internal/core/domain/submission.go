package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxTrackedSubmissions = 256

const (
	SubmissionPending SubmissionStatus = iota
	SubmissionMined
	SubmissionFailed
)

type SubmissionStatus int

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionMined:
		return "mined"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	SubmitIdle SubmitState = iota
	SubmitPending
)

// SubmitState is the state of the submit action as seen by the user: idle
// when nothing is waiting to be mined, pending otherwise.
type SubmitState int

func (s SubmitState) String() string {
	if s == SubmitPending {
		return "pending"
	}
	return "idle"
}

type Submission struct {
	Id          string
	Message     string
	TxHash      string
	Status      SubmissionStatus
	BlockNumber uint64
	Err         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s Submission) IsPending() bool {
	return s.Status == SubmissionPending
}

// SubmissionTracker records every wave submission of the session. It never
// blocks a new submission: any number of them can be pending at once.
type SubmissionTracker struct {
	lock        *sync.RWMutex
	submissions map[string]*Submission
	order       []string
	inFlight    int
}

func NewSubmissionTracker() *SubmissionTracker {
	return &SubmissionTracker{
		lock:        &sync.RWMutex{},
		submissions: make(map[string]*Submission),
	}
}

func (t *SubmissionTracker) Start(message string) Submission {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := time.Now()
	s := &Submission{
		Id:        uuid.New().String(),
		Message:   message,
		Status:    SubmissionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.submissions[s.Id] = s
	t.order = append(t.order, s.Id)
	t.inFlight++
	t.prune()
	return *s
}

func (t *SubmissionTracker) SetTxHash(id, txHash string) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	s, ok := t.submissions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	s.TxHash = txHash
	s.UpdatedAt = time.Now()
	return nil
}

func (t *SubmissionTracker) Mined(id string, blockNumber uint64) (Submission, error) {
	return t.end(id, func(s *Submission) {
		s.Status = SubmissionMined
		s.BlockNumber = blockNumber
	})
}

func (t *SubmissionTracker) Fail(id string, err error) (Submission, error) {
	return t.end(id, func(s *Submission) {
		s.Status = SubmissionFailed
		if err != nil {
			s.Err = err.Error()
		}
	})
}

func (t *SubmissionTracker) Get(id string) (Submission, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	s, ok := t.submissions[id]
	if !ok {
		return Submission{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return *s, nil
}

// List returns the tracked submissions, oldest first.
func (t *SubmissionTracker) List() []Submission {
	t.lock.RLock()
	defer t.lock.RUnlock()

	list := make([]Submission, 0, len(t.order))
	for _, id := range t.order {
		list = append(list, *t.submissions[id])
	}
	return list
}

func (t *SubmissionTracker) State() (SubmitState, int) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.inFlight > 0 {
		return SubmitPending, t.inFlight
	}
	return SubmitIdle, 0
}

func (t *SubmissionTracker) end(id string, update func(s *Submission)) (Submission, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	s, ok := t.submissions[id]
	if !ok {
		return Submission{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if !s.IsPending() {
		return *s, fmt.Errorf("submission %s already ended", id)
	}
	update(s)
	s.UpdatedAt = time.Now()
	t.inFlight--
	return *s, nil
}

// prune drops the oldest ended submissions once the tracker grows past its
// bound. Pending ones are always kept.
func (t *SubmissionTracker) prune() {
	excess := len(t.order) - maxTrackedSubmissions
	if excess <= 0 {
		return
	}

	order := make([]string, 0, len(t.order))
	for _, id := range t.order {
		if excess > 0 && !t.submissions[id].IsPending() {
			delete(t.submissions, id)
			excess--
			continue
		}
		order = append(order, id)
	}
	t.order = order
}
