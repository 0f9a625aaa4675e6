// Command csvtool replays a CSV script directly through a router.Router,
// with no network involved, for regression testing and manual inspection
// of matching behavior.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"matchbook/internal/csv"
	"matchbook/internal/router"
)

func main() {
	path := flag.String("script", "", "path to a CSV script file (required)")
	legacy := flag.Bool("legacy", false, "format output in the legacy symbol-agnostic form")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "error: -script is required")
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	r := router.New()
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		in, ok := csv.ParseLine(scanner.Text())
		if !ok {
			continue
		}

		for _, out := range r.Process(in) {
			if *legacy {
				fmt.Println(csv.FormatLineLegacy(out))
			} else {
				fmt.Println(csv.FormatLine(out))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading script: %v\n", err)
		os.Exit(1)
	}
}
