package cmd

import (
	"errors"
	"fmt"
	"os"

	e "github.com/rami3l/emberlox/errors"
	"github.com/rami3l/emberlox/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// Exit codes follow the sysexits.h convention spec.md §6 asks for.
const (
	exitOK       = 0
	exitUsage    = 64
	exitCompile  = 65
	exitRuntime  = 70
	exitIOErr    = 74
	exitInternal = 1
)

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:   "emberlox [script]",
		Short: "Launch the `emberlox` interpreter",
		Args:  cobra.MaximumNArgs(1),
	}

	app.Flags().SortFlags = true
	defaultVerbosityStr := "INFO"
	verbosity := app.Flags().StringP("verbosity", "v", defaultVerbosityStr, "Logging verbosity")

	app.Run = func(_ *cobra.Command, args []string) {
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl, _ = logrus.ParseLevel(defaultVerbosityStr)
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		os.Exit(appMain(args))
	}
	return
}

// appMain is the collaborator spec.md §6 describes: REPL with no
// positional arg, file mode with one, nothing else — the interpreter
// core itself stays unaware of stdin/stdout/file paths.
func appMain(args []string) int {
	vm_ := vm.NewVM()
	defer vm_.Free()

	if len(args) == 0 {
		if err := vm_.REPL(); err != nil {
			logrus.Error(err)
			return exitIOErr
		}
		return exitOK
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		logrus.Error(err)
		return exitIOErr
	}

	if err := vm_.InterpretFile(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var compileErr *e.CompilationError
		var runtimeErr *e.RuntimeError
		switch {
		case errors.As(err, &compileErr):
			return exitCompile
		case errors.As(err, &runtimeErr):
			return exitRuntime
		default:
			return exitInternal
		}
	}
	return exitOK
}
