package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/uorlink/internal/logging"
	"github.com/danmuck/uorlink/internal/selftest"
)

func main() {
	verbose := flag.Bool("v", false, "list every failing check")
	flag.Parse()

	logging.ConfigureRuntime()

	report := selftest.Run(selftest.Samples())
	if err := report.Err(); err != nil {
		if *verbose {
			for _, f := range report.Failures {
				fmt.Fprintln(os.Stderr, f)
			}
		}
		fmt.Fprintf(os.Stderr, "uorselftest: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("uorselftest: %d checks passed\n", report.Passed())
}
