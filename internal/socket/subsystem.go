package socket

import "sync"

// The platform network subsystem is started when the first socket opens and
// torn down when the last one closes. Only Open and Close touch the counter.
var subsystem struct {
	mu    sync.Mutex
	users int
}

// Replaced in tests.
var (
	startupFunc   = platformStartup
	cleanupFunc   = platformCleanup
	newSocketFunc = createSocket
)

// acquire takes a subsystem reference, starting the platform on 0 -> 1.
// A failed startup takes no reference.
func acquire() error {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()

	if subsystem.users == 0 {
		if err := startupFunc(); err != nil {
			return err
		}
	}
	subsystem.users++
	return nil
}

// release drops a subsystem reference, tearing the platform down on 1 -> 0.
func release() {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()

	if subsystem.users == 0 {
		return
	}
	subsystem.users--
	if subsystem.users == 0 {
		cleanupFunc()
	}
}

func usage() int {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()
	return subsystem.users
}
