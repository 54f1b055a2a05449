package snapshot

import "fmt"

// OversizedElementError is fatal: the halving budget was exhausted while
// shrinking a batch, meaning some individual element cannot be reduced
// below the transport's size ceiling. Nothing was committed as final.
type OversizedElementError struct {
	Section    string // "nodes", "timeline", "chat_history", "overview"
	ChunkIndex int
	BatchSize  int
}

func (e *OversizedElementError) Error() string {
	return fmt.Sprintf("snapshot %s contains an element too large to transmit (chunk %d, batch size %d after retries)",
		e.Section, e.ChunkIndex, e.BatchSize)
}

// TransferAbortedError is fatal: a chunk request failed for a non-size
// reason mid-sequence. The terminal chunk was never sent, so the receiving
// side must treat the partial snapshot as incomplete and discardable.
type TransferAbortedError struct {
	ChunkIndex int   // index of the chunk that failed
	Acked      int   // chunks acknowledged before the failure
	Err        error // underlying transport failure
}

func (e *TransferAbortedError) Error() string {
	return fmt.Sprintf("snapshot transfer aborted at chunk %d (%d acknowledged): %v", e.ChunkIndex, e.Acked, e.Err)
}

func (e *TransferAbortedError) Unwrap() error {
	return e.Err
}
