package pubsub

import "context"

// Forward calls fn for each event received on ch until ctx is cancelled, the
// channel closes, or fn returns an error. A closed channel or cancelled
// context ends forwarding without error.
func Forward[T any](ctx context.Context, ch <-chan Event[T], fn func(Event[T]) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := fn(event); err != nil {
				return err
			}
		}
	}
}
