package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/caseboard/casewire/internal/model"
)

// Opener starts a similarity scan and returns its event stream.
// *api.Client implements it.
type Opener interface {
	SimilarityStream(ctx context.Context, caseID string, entityTypes []string, threshold float64) (io.ReadCloser, error)
}

// Consume reads the stream to completion with a single outstanding read at
// a time, dispatching each decoded event in wire order. Cancellation is
// observed at the next read boundary, never mid-callback. At end-of-stream
// the decoder is flushed so a final record without a trailing blank line is
// still delivered.
func Consume(ctx context.Context, r io.Reader, h Handlers) error {
	dec := NewDecoder()
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				h.dispatch(ev)
			}
		}
		if err == io.EOF {
			for _, ev := range dec.Flush() {
				h.dispatch(ev)
			}
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Start launches the scan and consumes its stream in the background. All
// results arrive through the handlers; the returned function cancels the
// scan from the caller's side.
//
// A caller-initiated cancellation dispatches OnCancelled; if the server
// had already emitted its own cancelled event, both firing is harmless.
// Any other transport failure is delivered once through OnTransportError.
func Start(ctx context.Context, opener Opener, req model.ScanRequest, h Handlers) (func(), error) {
	body, err := opener.SimilarityStream(ctx, req.CaseID, req.EntityTypes, req.Threshold)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)

	// Closing the body is what actually unblocks an in-flight read.
	go func() {
		<-cctx.Done()
		body.Close()
	}()

	go func() {
		defer cancel()
		err := Consume(cctx, body, h)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || cctx.Err() != nil:
			if h.OnCancelled != nil {
				h.OnCancelled(Event{Type: EventCancelled})
			}
		default:
			if h.OnTransportError != nil {
				h.OnTransportError(fmt.Errorf("similarity stream failed: %w", err))
			}
		}
	}()

	return cancel, nil
}
