package liquid

import (
	"fmt"
	"log"
	"os"
)

type engineOptions struct {
	debug bool
}

var (
	options = engineOptions{}
	logger  = log.New(os.Stdout, "[liquid] ", log.LstdFlags)
)

// SetDebug toggles package-wide debug logging from compile/render.
func SetDebug(b bool) {
	options.debug = b
}

func logf(format string, items ...interface{}) {
	if options.debug {
		logger.Printf(format, items...)
	}
}

// Logf is the exported, sender-tagged variant, used by callers embedding
// the engine who want debug lines attributed to their own component.
func Logf(sender string, format string, items ...interface{}) {
	if options.debug {
		logger.Printf(fmt.Sprintf("[%s] %s", sender, format), items...)
	}
}
