package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/imdbload/internal/cli"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(imdbload.ExitPanic)
		}
	}()

	if os.Getenv("IMDBLOAD_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(imdbload.ExitCodeForError(err))
	}
}
