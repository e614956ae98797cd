package plugin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	totalsPattern       = regexp.MustCompile(`(?i)^\s*Totals:\s+(\d+)\s+passed,\s+(\d+)\s+failed`)
	qtFailurePattern    = regexp.MustCompile(`(?i)^\s*FAIL!\s*:\s+(.+?)\s`)
	summaryPattern      = regexp.MustCompile(`^\s*\d+/\d+\s+Test\s+#\d+:\s+(.+?)\s+\.+\s*\*{0,3}\s*(Passed|Failed)\b`)
	undottedPattern     = regexp.MustCompile(`^\s*\d+/\d+\s+Test\s+#\d+:\s+(.+?)\s+\*{0,3}\s*(Passed|Failed)\b`)
	startPattern        = regexp.MustCompile(`^\s*Start\s+\d+:\s+(.+?)\s*$`)
	failedHeaderPattern = regexp.MustCompile(`(?i)^\s*The following tests FAILED:`)
	failedEntryPattern  = regexp.MustCompile(`^\s*\d+\s*-\s*(.+?)\s+\(Failed\)\s*$`)
)

// totalsLine is a Qt Test "Totals: P passed, F failed" line.
type totalsLine struct {
	passed, failed int
}

// summaryLine is a ctest "N/M Test #N: name .... Passed|Failed" line.
type summaryLine struct {
	name   string
	failed bool
}

func matchTotals(line string) (totalsLine, bool) {
	m := totalsPattern.FindStringSubmatch(line)
	if m == nil {
		return totalsLine{}, false
	}
	passed, err := strconv.Atoi(m[1])
	if err != nil {
		return totalsLine{}, false
	}
	failed, err := strconv.Atoi(m[2])
	if err != nil {
		return totalsLine{}, false
	}
	return totalsLine{passed: passed, failed: failed}, true
}

func matchQtFailure(line string) (string, bool) {
	return matchName(qtFailurePattern, line)
}

// matchSummary prefers the dotted ctest layout, so a status word inside a
// test name does not end the name early.
func matchSummary(line string) (summaryLine, bool) {
	m := summaryPattern.FindStringSubmatch(line)
	if m == nil {
		m = undottedPattern.FindStringSubmatch(line)
	}
	if m == nil {
		return summaryLine{}, false
	}
	return summaryLine{name: strings.TrimSpace(m[1]), failed: m[2] == "Failed"}, true
}

func matchStart(line string) (string, bool) {
	return matchName(startPattern, line)
}

func matchFailedHeader(line string) bool {
	return failedHeaderPattern.MatchString(line)
}

func matchFailedEntry(line string) (string, bool) {
	return matchName(failedEntryPattern, line)
}

func matchName(re *regexp.Regexp, line string) (string, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// evidence is what one strategy collected from a log. resolve reports
// false when the strategy saw nothing it can vouch for.
type evidence interface {
	strategy() Strategy
	resolve() (Results, bool)
}

type totalsEvidence struct {
	found    bool
	passed   int
	failed   int
	failures []string
	seen     map[string]struct{}
}

func (e *totalsEvidence) add(t totalsLine) {
	e.found = true
	e.passed += t.passed
	e.failed += t.failed
}

func (e *totalsEvidence) addFailure(name string) {
	if e.seen == nil {
		e.seen = make(map[string]struct{})
	}
	if _, ok := e.seen[name]; ok {
		return
	}
	e.seen[name] = struct{}{}
	e.failures = append(e.failures, name)
}

func (e *totalsEvidence) strategy() Strategy { return StrategyTotals }

func (e *totalsEvidence) resolve() (Results, bool) {
	if !e.found {
		return Results{}, false
	}
	return Results{Total: e.passed + e.failed, Failed: e.failed, FailedTests: e.failures}, true
}

type summaryEvidence struct {
	results Results
}

func (e *summaryEvidence) add(s summaryLine) {
	e.results.Total++
	if s.failed {
		e.results.Failed++
		e.results.FailedTests = append(e.results.FailedTests, s.name)
	}
}

func (e *summaryEvidence) strategy() Strategy { return StrategySummary }

func (e *summaryEvidence) resolve() (Results, bool) {
	return e.results, e.results.Total > 0
}

// startEvidence trusts the "The following tests FAILED:" block for
// failures, since a truncated log has nothing else to offer.
type startEvidence struct {
	started []string
	listed  []string
}

func (e *startEvidence) strategy() Strategy { return StrategyStart }

func (e *startEvidence) resolve() (Results, bool) {
	if len(e.started) == 0 {
		return Results{}, false
	}
	return Results{Total: len(e.started), Failed: len(e.listed), FailedTests: e.listed}, true
}

// logScanner feeds log lines to the matchers and keeps per-strategy
// evidence.
type logScanner struct {
	totals     totalsEvidence
	summary    summaryEvidence
	start      startEvidence
	inFailList bool
}

func (s *logScanner) scanLine(line string) {
	if t, ok := matchTotals(line); ok {
		s.totals.add(t)
	}
	if name, ok := matchQtFailure(line); ok {
		s.totals.addFailure(name)
	}

	if matchFailedHeader(line) {
		s.inFailList = true
		return
	}
	if s.inFailList {
		if name, ok := matchFailedEntry(line); ok {
			s.start.listed = append(s.start.listed, name)
			return
		}
		if strings.TrimSpace(line) == "" {
			s.inFailList = false
		}
	}

	if sl, ok := matchSummary(line); ok {
		s.summary.add(sl)
		return
	}
	if name, ok := matchStart(line); ok {
		s.start.started = append(s.start.started, name)
	}
}

// result picks the first strategy, in precedence order, that resolves.
func (s *logScanner) result() (Results, Strategy) {
	for _, e := range []evidence{&s.totals, &s.summary, &s.start} {
		if results, ok := e.resolve(); ok {
			return results, e.strategy()
		}
	}
	return Results{}, StrategyNone
}

// parseTestLogFile reads a ctest or Qt Test log from disk.
func parseTestLogFile(filename string) (Results, Strategy, error) {
	logrus.Infof("Processing test log: %s", filename)

	f, err := os.Open(filename)
	if err != nil {
		return Results{}, StrategyNone, fmt.Errorf("failed to open test log: %w", err)
	}
	defer f.Close()

	return parseTestLog(f)
}

// maxLineSize bounds the memory held for a single log line.
const maxLineSize = 16 << 20

// parseTestLog scans a log line by line. On a read error the lines seen so
// far are still resolved and returned alongside the error.
func parseTestLog(r io.Reader) (Results, Strategy, error) {
	var s logScanner
	sc := bufio.NewScanner(newLenientReader(r))
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	sc.Split(scanLines)

	for sc.Scan() {
		s.scanLine(normalizeNewline(sc.Text()))
	}

	var readErr error
	if err := sc.Err(); err != nil {
		readErr = fmt.Errorf("failed to read test log: %w", err)
	}

	results, strategy := s.result()
	logrus.Debugf("Test log interpreted with strategy %q: total=%d failed=%d", strategy, results.Total, results.Failed)
	return results, strategy, readErr
}

// scanLines splits on \n, \r\n or a lone \r. Tokens keep their line ending
// so a final unterminated line can be told apart.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i+1], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i+2], nil
				}
				return i + 1, data[:i+1], nil
			}
			if atEOF {
				return i + 1, data[:i+1], nil
			}
			return 0, nil, nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// normalizeNewline rewrites any line ending to \n.
func normalizeNewline(line string) string {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == line {
		return line
	}
	return trimmed + "\n"
}
