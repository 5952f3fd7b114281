package planner

import "github.com/synthetos/tinyg-motion/tinygerr"

// BeginFeedhold recomputes the currently running buffer for a
// synchronous pause, per spec.md §4.1: exit_v becomes 0. If the
// remaining length cannot absorb a full decel from currentV to 0 at
// the buffer's jerk, a zero-length synchronizing buffer is inserted
// immediately after it — the simpler policy spec.md §9 recommends,
// rather than spilling the tail into the next queued buffer's own
// geometry (Open Question #3, resolved in DESIGN.md).
func (q *Queue) BeginFeedhold(currentV float64) error {
	b := q.Peek()
	if b == nil {
		return tinygerr.ErrInternal
	}
	b.ExitV = 0
	if b.ExitVmax < 0 {
		b.ExitVmax = 0
	}
	decelDist := sCurveDistance(currentV, 0, b.Jerk)
	b.Tail = decelDist
	if b.Head+decelDist <= b.Length+1e-9 {
		b.Body = b.Length - b.Head - decelDist
		if b.Body < 0 {
			b.Body = 0
		}
		return nil
	}
	sync := BF{State: Queued, MoveType: MoveDwell, Length: 0}
	return q.insertAfterRun(sync)
}

// Resume inserts a fresh accel-back block bringing velocity from rest
// back up to targetCruiseV, per spec.md §4.1's resume behavior. It is
// inserted immediately after the (now stopped) held buffer, along the
// held buffer's own direction.
func (q *Queue) Resume(targetCruiseV, jerk float64) error {
	held := q.Peek()
	if held == nil {
		return tinygerr.ErrInternal
	}
	accelDist := sCurveDistance(0, targetCruiseV, jerk)
	nb := BF{
		State:      Queued,
		MoveType:   MoveLine,
		Length:     accelDist,
		Unit:       held.Unit,
		CruiseVmax: targetCruiseV,
		ExitVmax:   targetCruiseV,
		EntryV:     0,
		CruiseV:    targetCruiseV,
		ExitV:      targetCruiseV,
		Head:       accelDist,
		Jerk:       jerk,
	}
	return q.insertAfterRun(nb)
}

// insertAfterRun shifts the queued buffers between the run cursor and
// the write cursor forward by one slot and places nb immediately after
// the running buffer. Used by feedhold/resume, which must take effect
// before any already-queued successor executes.
func (q *Queue) insertAfterRun(nb BF) error {
	if q.Available() == 0 {
		return tinygerr.ErrQueueFull
	}
	insertPos := q.idxAfter(q.runIdx)
	if insertPos != q.writeIdx {
		idx := (q.writeIdx - 1 + Capacity) % Capacity
		for {
			dst := q.idxAfter(idx)
			q.buffers[dst] = q.buffers[idx]
			if idx == insertPos {
				break
			}
			idx = (idx - 1 + Capacity) % Capacity
		}
	}
	q.buffers[insertPos] = nb
	q.writeIdx = q.idxAfter(q.writeIdx)
	q.count++
	return nil
}
