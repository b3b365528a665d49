package capture

// stopState tracks Stop against a blocking dispatch call that may start
// after Stop has already run. A backend whose interrupt is dropped when the
// dispatch call has not started yet (RecordDisableContext on a context that
// is not enabled) re-sends it once dispatch reports it is live.
//
// The owner guards it with its own mutex.
type stopState struct {
	stopped bool
	armed   bool
}

// arm marks the dispatch call as about to start. It reports false if Stop
// already ran, in which case the call must not be made.
func (st *stopState) arm() bool {
	if st.stopped {
		return false
	}
	st.armed = true
	return true
}

// stop reports whether the caller should interrupt the dispatch call now.
func (st *stopState) stop() bool {
	if st.stopped {
		return false
	}
	st.stopped = true
	return st.armed
}

// started reports whether a Stop that may have been lost must be re-sent
// now that dispatch is running.
func (st *stopState) started() bool {
	return st.stopped && st.armed
}

func (st *stopState) disarm() {
	st.armed = false
}
