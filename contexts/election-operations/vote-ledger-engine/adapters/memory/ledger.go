package memory

import (
	"context"
	"fmt"
	"sync"

	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

type pendingOp struct {
	voterHash   string
	electionID  string
	candidateID string
	action      ports.LifecycleAction
	isVote      bool
}

// Ledger is a scriptable in-process ledger for tests and local runs. Each
// confirmed operation occupies its own block. The exported Fail* knobs
// inject the failure modes the coordinator must survive.
type Ledger struct {
	mu      sync.Mutex
	height  uint64
	active  map[string]bool
	events  []ports.VoteCastEvent
	pending map[string]pendingOp
	txSeq   int

	// Failure injection. FailHeight and FailRange reject reads;
	// FailSubmit rejects the submission before anything lands;
	// FailConfirm is returned from AwaitConfirmation; HangConfirm blocks
	// until the caller's context expires, and LandWhileHanging decides
	// whether the hanging transaction landed anyway.
	FailHeight       error
	FailSubmit       error
	FailConfirm      error
	HangConfirm      bool
	LandWhileHanging bool
}

func NewLedger() *Ledger {
	return &Ledger{
		active:  make(map[string]bool),
		pending: make(map[string]pendingOp),
	}
}

// AdvanceBlocks grows the chain without adding events, for cursor tests.
func (l *Ledger) AdvanceBlocks(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += n
}

// SeedVote places a confirmed vote directly on the chain.
func (l *Ledger) SeedVote(voterHash string, electionID string, candidateID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height++
	l.txSeq++
	l.events = append(l.events, ports.VoteCastEvent{
		VoterHash:   voterHash,
		ElectionID:  electionID,
		CandidateID: candidateID,
		BlockNumber: l.height,
		TxReference: fmt.Sprintf("seed-tx-%d", l.txSeq),
	})
	return l.height
}

// SetElectionActive overrides the on-ledger activity flag, for divergence
// tests.
func (l *Ledger) SetElectionActive(electionID string, active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active[electionID] = active
}

func (l *Ledger) CurrentHeight(_ context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailHeight != nil {
		return 0, l.FailHeight
	}
	return l.height, nil
}

func (l *Ledger) SubmitVote(
	_ context.Context,
	voterHash string,
	electionID string,
	candidateID string,
) (ports.PendingTx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSubmit != nil {
		return ports.PendingTx{}, l.FailSubmit
	}
	l.txSeq++
	ref := fmt.Sprintf("tx-%d", l.txSeq)
	l.pending[ref] = pendingOp{
		voterHash:   voterHash,
		electionID:  electionID,
		candidateID: candidateID,
		isVote:      true,
	}
	return ports.PendingTx{Reference: ref}, nil
}

func (l *Ledger) SubmitLifecycle(
	_ context.Context,
	electionID string,
	action ports.LifecycleAction,
) (ports.PendingTx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSubmit != nil {
		return ports.PendingTx{}, l.FailSubmit
	}
	l.txSeq++
	ref := fmt.Sprintf("tx-%d", l.txSeq)
	l.pending[ref] = pendingOp{electionID: electionID, action: action}
	return ports.PendingTx{Reference: ref}, nil
}

func (l *Ledger) AwaitConfirmation(ctx context.Context, tx ports.PendingTx) (uint64, error) {
	l.mu.Lock()
	op, ok := l.pending[tx.Reference]
	if !ok {
		l.mu.Unlock()
		return 0, domainerrors.ErrSubmissionFailed
	}

	if l.HangConfirm {
		if l.LandWhileHanging {
			l.confirmLocked(tx.Reference, op)
		}
		l.mu.Unlock()
		<-ctx.Done()
		return 0, domainerrors.ErrSubmissionUncertain
	}
	if l.FailConfirm != nil {
		err := l.FailConfirm
		delete(l.pending, tx.Reference)
		l.mu.Unlock()
		return 0, err
	}

	block := l.confirmLocked(tx.Reference, op)
	l.mu.Unlock()
	return block, nil
}

// confirmLocked applies the pending operation at a fresh block. Caller
// holds l.mu.
func (l *Ledger) confirmLocked(ref string, op pendingOp) uint64 {
	l.height++
	if op.isVote {
		l.events = append(l.events, ports.VoteCastEvent{
			VoterHash:   op.voterHash,
			ElectionID:  op.electionID,
			CandidateID: op.candidateID,
			BlockNumber: l.height,
			TxReference: ref,
		})
	} else {
		l.active[op.electionID] = op.action == ports.LifecycleStart
	}
	delete(l.pending, ref)
	return l.height
}

func (l *Ledger) HasVoted(_ context.Context, electionID string, voterHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range l.events {
		if event.ElectionID == electionID && event.VoterHash == voterHash {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) IsElectionActive(_ context.Context, electionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[electionID], nil
}

func (l *Ledger) VoteEventsInRange(
	_ context.Context,
	fromBlock uint64,
	toBlock uint64,
) ([]ports.VoteCastEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailHeight != nil {
		return nil, l.FailHeight
	}
	items := make([]ports.VoteCastEvent, 0)
	for _, event := range l.events {
		if event.BlockNumber >= fromBlock && event.BlockNumber <= toBlock {
			items = append(items, event)
		}
	}
	return items, nil
}

var _ ports.LedgerGateway = (*Ledger)(nil)
