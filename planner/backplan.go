package planner

// backPlan runs the reverse pass of spec.md §4.1: walk from the newest
// queued buffer toward (but not including) the currently Running
// buffer, propagating exit_v := min(exit_vmax, successor.entry_v) and
// re-solving each buffer's achievable profile. Repeated until a full
// sweep makes no change (idempotent, per the Testable Properties in
// spec.md §8), bounded by Capacity sweeps since the ring is finite.
func (q *Queue) backPlan() {
	if q.count == 0 {
		return
	}
	for pass := 0; pass < Capacity; pass++ {
		if !q.backPlanSweep() {
			return
		}
	}
}

// backPlanSweep performs one reverse pass and reports whether any
// buffer's velocities changed.
func (q *Queue) backPlanSweep() bool {
	changed := false
	idx := (q.writeIdx - 1 + Capacity) % Capacity
	isNewest := true

	for steps := 0; steps < q.count; steps++ {
		b := &q.buffers[idx]
		if b.State == Running {
			break
		}

		oldEntry, oldExit, oldCruise := b.EntryV, b.ExitV, b.CruiseV

		if isNewest {
			if b.ExitV > b.ExitVmax {
				b.ExitV = b.ExitVmax
			}
		} else {
			succIdx := q.idxAfter(idx)
			succ := &q.buffers[succIdx]
			exit := succ.EntryV
			if exit > b.ExitVmax {
				exit = b.ExitVmax
			}
			b.ExitV = exit
		}

		entryV, cruiseV := solveProfile(b.EntryVmax, b.ExitV, b.CruiseVmax, b.Length, b.Jerk)
		b.EntryV = entryV
		b.CruiseV = cruiseV

		if b.EntryV != oldEntry || b.ExitV != oldExit || b.CruiseV != oldCruise {
			changed = true
		}

		isNewest = false
		idx = (idx - 1 + Capacity) % Capacity
	}
	return changed
}
