package gpio

// busyDelay spins until us microseconds have passed on now.
// Sleeping would hand the thread to the scheduler for far longer than the
// tens of microseconds the wake-up sequence needs.
func busyDelay(now func() uint32, us uint32) {
	start := now()
	for now()-start < us {
	}
}
