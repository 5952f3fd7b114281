package planner

// ForwardPlan computes head/body/tail lengths for a buffer about to
// execute, per spec.md §4.1's forward pass: head (accel entry_v ->
// cruise_v), tail (decel cruise_v -> exit_v), body = L - head - tail.
func (b *BF) ForwardPlan() {
	head := sCurveDistance(b.EntryV, b.CruiseV, b.Jerk)
	tail := sCurveDistance(b.CruiseV, b.ExitV, b.Jerk)
	body := b.Length - head - tail
	if body < 0 {
		// Rounding from the bisection solves in solveProfile; the
		// trapezoid/triangle split is only ever approximately exact.
		body = 0
	}
	b.Head, b.Body, b.Tail = head, body, tail
}

// Activate promotes the run-cursor buffer to Running (forward-planning
// it) and its successor, if any, to Pending. It is the entry point the
// cycle controller uses at cycle-start and after PopRunning advances
// the run cursor. Returns the newly active buffer, or nil if the queue
// is empty.
func (q *Queue) Activate() *BF {
	b := q.Peek()
	if b == nil {
		return nil
	}
	if b.State != Running {
		b.State = Running
		b.ForwardPlan()
	}
	if p := q.PeekPending(); p != nil && p.State == Queued {
		p.State = Pending
	}
	return b
}
