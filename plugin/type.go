package plugin

import "encoding/xml"

// TestSuite represents a JUnit testsuite element. The element name is left
// unconstrained so the same type can decode a testsuites container root.
type TestSuite struct {
	XMLName xml.Name
	Name    string      `xml:"name,attr"`
	Suites  []TestSuite `xml:"testsuite"`
	Cases   []TestCase  `xml:"testcase"`
}

// TestCase represents a JUnit testcase.
type TestCase struct {
	Name      string  `xml:"name,attr"`
	ClassName string  `xml:"classname,attr"`
	Failure   *Marker `xml:"failure"`
	Error     *Marker `xml:"error"`
}

// Marker is a failure or error child; only its presence matters.
type Marker struct{}

// Failed reports whether the case carries a failure or error marker.
func (c TestCase) Failed() bool {
	return c.Failure != nil || c.Error != nil
}

// Label returns the identifier reported for a failed case.
func (c TestCase) Label() string {
	name := c.Name
	if name == "" {
		name = "unknown"
	}
	if c.ClassName != "" {
		return c.ClassName + "::" + name
	}
	return name
}

// Results holds normalized test counters from a single source.
type Results struct {
	Total       int
	Failed      int
	FailedTests []string
}

// Passed returns the number of passing tests, never below zero.
func (r Results) Passed() int {
	if r.Failed > r.Total {
		return 0
	}
	return r.Total - r.Failed
}

// Strategy identifies how a text log was interpreted.
type Strategy string

const (
	StrategyNone    Strategy = "none"
	StrategyTotals  Strategy = "totals"
	StrategySummary Strategy = "summary"
	StrategyStart   Strategy = "start"
)
