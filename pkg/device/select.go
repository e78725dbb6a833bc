package device

import "context"

// Branch identifies which source won a Select.
type Branch uint8

const (
	BranchFirst Branch = iota + 1
	BranchSecond
)

// String returns the branch name.
func (b Branch) String() string {
	switch b {
	case BranchFirst:
		return "FIRST"
	case BranchSecond:
		return "SECOND"
	default:
		return "NONE"
	}
}

// Either is the outcome of Select. Only the field of the winning branch is
// set. OK is false when the winning channel was closed.
type Either[A, B any] struct {
	Branch Branch
	First  A
	Second B
	OK     bool
}

// Select waits for a value from first or second.
//
// If first is ready when Select is called it wins, even if second is also
// ready. Otherwise second is checked, and then Select blocks on both. The
// losing channel is not read. A nil channel never wins. Select returns
// ctx.Err() when ctx is done before either source is ready.
func Select[A, B any](ctx context.Context, first <-chan A, second <-chan B) (Either[A, B], error) {
	select {
	case v, ok := <-first:
		return Either[A, B]{Branch: BranchFirst, First: v, OK: ok}, nil
	default:
	}

	select {
	case v, ok := <-second:
		return Either[A, B]{Branch: BranchSecond, Second: v, OK: ok}, nil
	default:
	}

	select {
	case v, ok := <-first:
		return Either[A, B]{Branch: BranchFirst, First: v, OK: ok}, nil
	case v, ok := <-second:
		return Either[A, B]{Branch: BranchSecond, Second: v, OK: ok}, nil
	case <-ctx.Done():
		return Either[A, B]{}, ctx.Err()
	}
}

// Receive waits for the next payload on dc, returning ErrClosed when the
// stream has ended and ctx.Err() when ctx is done.
func Receive(ctx context.Context, dc Context) (InboundPayload, error) {
	select {
	case p, ok := <-dc.Receive():
		if !ok {
			return nil, ErrClosed
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
