package debug

import (
	"fmt"
	"os"
)

// DEBUG gates the VM's per-instruction trace, the compiler's end-of-chunk
// disassembly, and the Assertf/AssertEq internal consistency checks. It is
// read once from the EMBERLOX_DEBUG environment variable rather than a
// compile-time constant, so a built binary can still be asked to trace.
var DEBUG = os.Getenv("EMBERLOX_DEBUG") != ""

func Assertf(b bool, format string, a ...any) {
	if DEBUG && !b {
		panic(fmt.Sprintf(format, a...))
	}
}

func AssertEq[T comparable](expected, got T) { Assertf(expected == got, "%v != %v", expected, got) }
