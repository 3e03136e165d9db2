package inject

// attachFunc joins (attach=true) or detaches the input queue of thread
// from to thread to, reporting success.
type attachFunc func(from, to uint32, attach bool) bool

// attachInput joins self's input queue to each of threads and returns a
// function that undoes every join that succeeded. Zero thread ids, self and
// repeats are skipped. The release is safe to call more than once.
func attachInput(attach attachFunc, self uint32, threads ...uint32) (release func()) {
	var joined []uint32
	seen := map[uint32]bool{0: true, self: true}
	for _, t := range threads {
		if seen[t] {
			continue
		}
		seen[t] = true
		if attach(self, t, true) {
			joined = append(joined, t)
		}
	}
	return func() {
		for _, t := range joined {
			attach(self, t, false)
		}
		joined = nil
	}
}
