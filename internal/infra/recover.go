package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f, restarting it after panics. A negative maxPanics
// restarts forever; once the limit is spent the process exits.
func GoRecoverable(maxPanics int, id string, f func()) {
	for {
		if runOnce(id, f) {
			return
		}
		if maxPanics == 0 {
			log.Fatalf("panics limit exceeded for job %q, exiting", id)
		}
		if maxPanics > 0 {
			maxPanics--
		}
		log.WithField("job", id).WithField("panics_left", maxPanics).Debug("recovering job")
	}
}

func runOnce(id string, f func()) (completed bool) {
	defer func() {
		if err := recover(); err != nil {
			log.WithField("job", id).WithField("origin", panicOrigin()).Errorf("job panicked: %v", err)
			completed = false
		}
	}()
	f()
	return true
}

func panicOrigin() string {
	var pc [16]uintptr
	n := runtime.Callers(4, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		if name := fn.Name(); !strings.HasPrefix(name, "runtime.") {
			return fmt.Sprintf("%v:%v", name, line)
		}
		if file != "" {
			return fmt.Sprintf("%v:%v", file, line)
		}
	}
	return "unknown"
}
