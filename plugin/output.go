package plugin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

const defaultDelimiter = "EOF"

// writeOutputs appends step outputs for results to the file at filename.
func writeOutputs(filename string, results Results) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	if err := formatOutputs(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// formatOutputs writes key=value lines followed by the heredoc-framed list
// of failed tests. The list block is always present, even when empty.
func formatOutputs(w io.Writer, results Results) error {
	bw := bufio.NewWriter(w)
	delim := outputDelimiter(results.FailedTests)

	fmt.Fprintf(bw, "tests_total=%d\n", results.Total)
	fmt.Fprintf(bw, "tests_passed=%d\n", results.Passed())
	fmt.Fprintf(bw, "tests_failed=%d\n", results.Failed)
	fmt.Fprintf(bw, "failed_tests<<%s\n", delim)
	bw.WriteString(strings.Join(results.FailedTests, "\n"))
	fmt.Fprintf(bw, "\n%s\n", delim)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	return nil
}

// outputDelimiter returns EOF unless a failed test name would close the
// block early. The fallback is derived from the names so reruns stay
// byte-identical.
func outputDelimiter(names []string) string {
	if !containsLine(names, defaultDelimiter) {
		return defaultDelimiter
	}
	seed := strings.Join(names, "\n")
	for {
		delim := defaultDelimiter + "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
		if !containsLine(names, delim) {
			return delim
		}
		seed = delim
	}
}

func containsLine(names []string, delim string) bool {
	for _, name := range names {
		for _, line := range strings.Split(name, "\n") {
			if line == delim {
				return true
			}
		}
	}
	return false
}
