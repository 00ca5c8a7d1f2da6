package stream

import "context"

// Consume delivers events from both channels to handle in arrival order until
// both channels are closed or ctx is done. Neither channel is favoured.
func Consume(ctx context.Context, e *Emitter, handle func(Event)) error {
	tokens := e.Tokens()
	progress := e.ProgressEvents()
	for tokens != nil || progress != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-tokens:
			if !ok {
				tokens = nil
				continue
			}
			handle(evt)
		case evt, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			handle(evt)
		}
	}
	return nil
}
