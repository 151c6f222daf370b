package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"askrelay/pkg/interfaces"
	"askrelay/pkg/types"
)

// ResponseSource tags every resolution produced by this broker
const ResponseSource = "askrelay-ui"

// PendingSession is one question batch awaiting exactly one resolution.
// It is owned by the Store from insertion until removal; the resolution
// channel receives at most one batch, sent only by whichever caller
// successfully removed the session.
type PendingSession struct {
	AskID          string
	Request        types.AskRequestBatch
	RequestedAt    time.Time
	RequestedAtISO string
	TimeoutMS      uint64
	resolution     chan types.ResponseBatch
}

// Resolution returns the receive side of the session's resolution channel.
// The socket handler blocks here until the session is resolved.
func (p *PendingSession) Resolution() <-chan types.ResponseBatch {
	return p.resolution
}

// deliver pushes the terminal batch onto the session's channel. Capacity 1
// plus the remove-before-resolve invariant means the send never blocks; a
// full channel would indicate a double resolution and is only logged.
func (p *PendingSession) deliver(batch types.ResponseBatch) {
	select {
	case p.resolution <- batch:
	default:
		log.Printf("Dropped duplicate resolution for session %s", p.AskID)
	}
}

// Store is the single source of truth for pending ask sessions. The mutex
// is held only for map operations; channel sends, socket I/O and resolution
// logging always happen outside the lock.
type Store struct {
	mu      sync.Mutex
	pending map[string]*PendingSession
	history interfaces.ResolutionLog // may be nil when logging is disabled
}

// NewStore creates an empty session store
func NewStore(history interfaces.ResolutionLog) *Store {
	return &Store{
		pending: make(map[string]*PendingSession),
		history: history,
	}
}

// Insert registers a pending session from a validated socket request and
// returns it together with the creation notice for the UI event sink.
// A duplicate ask id is rejected without mutating state.
func (s *Store) Insert(req *types.SocketRequest) (*PendingSession, *types.SessionCreatedEvent, error) {
	now := time.Now().UTC()
	requestedAt, err := time.Parse(time.RFC3339, req.RequestedAtISO)
	if err != nil {
		requestedAt = now
	}

	pending := &PendingSession{
		AskID:          req.AskID,
		Request:        req.Request,
		RequestedAt:    requestedAt,
		RequestedAtISO: req.RequestedAtISO,
		TimeoutMS:      req.TimeoutMS,
		resolution:     make(chan types.ResponseBatch, 1),
	}

	event := &types.SessionCreatedEvent{
		AskID:          pending.AskID,
		RequestedAtISO: pending.RequestedAtISO,
	}
	if len(pending.Request.Questions) > 0 {
		text := pending.Request.Questions[0].Question
		event.FirstQuestionText = &text
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[pending.AskID]; exists {
		return nil, nil, fmt.Errorf("%w: %s", interfaces.ErrDuplicateSession, pending.AskID)
	}

	s.pending[pending.AskID] = pending
	return pending, event, nil
}

// Remove deletes a session from the store. It is idempotent and returns nil
// when the session is absent. Callers must never resolve a session they did
// not themselves remove; that rule makes resolution delivery at-most-once.
func (s *Store) Remove(askID string) *PendingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, exists := s.pending[askID]
	if !exists {
		return nil
	}

	delete(s.pending, askID)
	return pending
}

// ListPending sweeps stale sessions first, then returns read-only views of
// everything still pending, sorted by requested_at_iso ascending
func (s *Store) ListPending() []types.PendingSessionView {
	s.SweepExpired()

	now := time.Now().UTC()

	s.mu.Lock()
	views := make([]types.PendingSessionView, 0, len(s.pending))
	for _, pending := range s.pending {
		view := types.PendingSessionView{
			AskID:          pending.AskID,
			Request:        pending.Request,
			RequestedAtISO: pending.RequestedAtISO,
			TimeoutMS:      pending.TimeoutMS,
			IsExpired:      IsExpired(pending.RequestedAt, pending.TimeoutMS, now),
		}
		if expiry, ok := ExpiryTime(pending.RequestedAt, pending.TimeoutMS); ok {
			expiryISO := expiry.UTC().Format(time.RFC3339)
			view.ExpiresAtISO = &expiryISO
		}
		views = append(views, view)
	}
	s.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].RequestedAtISO < views[j].RequestedAtISO
	})

	return views
}

// Submit resolves a pending session with a human answer or cancellation.
// Validation failures leave the session pending; submitting past expiry
// resolves the waiting connection as expired and reports the expiry.
func (s *Store) Submit(ctx context.Context, payload *types.SubmitPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	pending, exists := s.pending[payload.AskID]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, payload.AskID)
	}

	now := time.Now().UTC()
	if IsExpired(pending.RequestedAt, pending.TimeoutMS, now) {
		if removed := s.Remove(payload.AskID); removed != nil {
			batch := buildExpiredBatch(removed.AskID)
			removed.deliver(batch)
			s.recordResolution(ctx, removed, batch, now)
		}
		return fmt.Errorf("%w: %s", interfaces.ErrSessionExpired, payload.AskID)
	}

	normalizedNote := types.NormalizeOptionalText(payload.Note)
	answeredAt := now.Format(time.RFC3339)

	batch := types.ResponseBatch{
		AskID:         pending.AskID,
		Answers:       []types.AskAnswer{},
		Note:          normalizedNote,
		Status:        payload.Status,
		AnsweredAtISO: &answeredAt,
		Source:        ResponseSource,
	}

	if payload.Status == types.StatusAnswered {
		answers, err := ValidateAnswers(pending.Request.Questions, payload.Answers)
		if err != nil {
			return err
		}
		if err := ValidateRequiredNote(pending.Request.Note, normalizedNote); err != nil {
			return err
		}
		batch.Answers = answers
	}

	// Remove-before-resolve: losing the race to the sweeper means the
	// session was already resolved and this submission reports not found.
	removed := s.Remove(payload.AskID)
	if removed == nil {
		return fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, payload.AskID)
	}

	removed.deliver(batch)
	s.recordResolution(ctx, removed, batch, now)
	return nil
}

// SweepExpired force-resolves every session past expiry plus the retention
// window. Removal happens under the lock; delivery happens outside it. A
// connection whose client already disconnected drops the batch silently.
func (s *Store) SweepExpired() {
	now := time.Now().UTC()

	s.mu.Lock()
	var swept []*PendingSession
	for askID, pending := range s.pending {
		if IsSweepEligible(pending.RequestedAt, pending.TimeoutMS, now) {
			swept = append(swept, pending)
			delete(s.pending, askID)
		}
	}
	s.mu.Unlock()

	for _, pending := range swept {
		batch := buildExpiredBatch(pending.AskID)
		pending.deliver(batch)
		s.recordResolution(context.Background(), pending, batch, now)
		log.Printf("Swept expired ask session: id=%s", pending.AskID)
	}
}

// PendingCount returns the number of sessions currently pending
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// recordResolution appends the terminal outcome to the resolution log.
// Logging failures are reported but never affect resolution delivery.
func (s *Store) recordResolution(ctx context.Context, pending *PendingSession, batch types.ResponseBatch, resolvedAt time.Time) {
	if s.history == nil {
		return
	}

	record := &types.ResolutionRecord{
		ID:             uuid.New().String(),
		AskID:          batch.AskID,
		Status:         batch.Status,
		Answers:        batch.Answers,
		Note:           batch.Note,
		RequestedAtISO: pending.RequestedAtISO,
		ResolvedAtISO:  resolvedAt.Format(time.RFC3339),
		Source:         batch.Source,
	}

	if err := s.history.RecordResolution(ctx, record); err != nil {
		log.Printf("Failed to record resolution for session %s: %v", batch.AskID, err)
	}
}

// buildExpiredBatch is the fixed terminal payload for forced expiry
func buildExpiredBatch(askID string) types.ResponseBatch {
	return types.ResponseBatch{
		AskID:         askID,
		Answers:       []types.AskAnswer{},
		Note:          nil,
		Status:        types.StatusExpired,
		AnsweredAtISO: nil,
		Source:        ResponseSource,
	}
}
