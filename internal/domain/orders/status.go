package orders

import (
	"fmt"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
)

func (s Status) Valid() bool {
	return s == StatusCancelled || rank(s) >= 0
}

// Cancel moves a pending or processing order to cancelled.
func (o *Order) Cancel() error {
	switch o.Status {
	case StatusPending, StatusProcessing:
	case StatusCancelled:
		return errs.InvalidState("order is already cancelled")
	default:
		return errs.InvalidState(fmt.Sprintf("cannot cancel an order that is %s", o.Status))
	}
	o.Status = StatusCancelled
	o.IsCancelled = true
	return nil
}

// Advance moves the order one or more steps forward along
// pending → processing → shipped → delivered, or cancels it.
// Reaching delivered stamps ActualDeliveryDate with now.
func (o *Order) Advance(to Status, now time.Time) error {
	if !to.Valid() {
		return errs.InvalidArgument(fmt.Sprintf("unknown order status %q", to))
	}
	if to == StatusCancelled {
		return o.Cancel()
	}
	if !reachable(o.Status, to) {
		return errs.InvalidState(fmt.Sprintf("cannot move order from %s to %s", o.Status, to))
	}
	o.Status = to
	o.IsCancelled = false
	if to == StatusDelivered {
		t := now.UTC()
		o.ActualDeliveryDate = &t
	}
	return nil
}

// reachable reports whether to lies strictly ahead of from on the
// fulfilment path.
func reachable(from, to Status) bool {
	return rank(from) >= 0 && rank(from) < rank(to)
}

var fulfilment = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

func rank(s Status) int {
	for i, f := range fulfilment {
		if f == s {
			return i
		}
	}
	return -1
}
