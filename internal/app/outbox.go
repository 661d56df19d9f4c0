package app

import "context"

type outboxKey struct{}

// outbox defers event publication staged during a composed transaction
// until the transaction has committed. The outermost service call creates
// it and flushes it; nested calls find it through the tx context and only
// stage. Publications staged in an attempt that rolls back are discarded
// with the attempt.
type outbox struct {
	staged []func(context.Context)
}

// openOutbox returns the context's outbox, creating one when the caller is
// the outermost transaction owner. The returned context must carry all
// repository and nested service calls made inside the transaction.
func openOutbox(ctx context.Context) (context.Context, *outbox, bool) {
	if box, ok := ctx.Value(outboxKey{}).(*outbox); ok {
		return ctx, box, false
	}
	box := &outbox{}
	return context.WithValue(ctx, outboxKey{}, box), box, true
}

func (b *outbox) stage(fn func(context.Context)) {
	b.staged = append(b.staged, fn)
}

// flush runs the staged publications. Only the owner calls it, after its
// transaction has committed.
func (b *outbox) flush(ctx context.Context) {
	for _, fn := range b.staged {
		fn(ctx)
	}
	b.staged = nil
}
