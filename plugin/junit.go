package plugin

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/ianaindex"
)

// parseJUnitFile reads a JUnit XML report from disk.
func parseJUnitFile(filename string) (Results, error) {
	logrus.Infof("Processing JUnit report: %s", filename)

	f, err := os.Open(filename)
	if err != nil {
		return Results{}, fmt.Errorf("failed to open JUnit report: %w", err)
	}
	defer f.Close()

	return parseJUnit(f)
}

// parseJUnit decodes a JUnit document and counts its test cases. The root
// may be a single testsuite or a container of testsuite elements.
func parseJUnit(r io.Reader) (Results, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	start, err := expectRoot(dec)
	if err != nil {
		return Results{}, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}
	var root TestSuite
	if err := dec.DecodeElement(&root, &start); err != nil {
		return Results{}, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}
	if err := expectEOF(dec); err != nil {
		return Results{}, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}

	var results Results
	if root.XMLName.Local == "testsuite" {
		aggregateSuite(root, &results)
	} else {
		for _, suite := range root.Suites {
			aggregateSuite(suite, &results)
		}
	}
	return results, nil
}

// charsetReader converts reports declaring a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// expectRoot skips the prolog and returns the root element, rejecting any
// text before it.
func expectRoot(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, errors.New("no root element found")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, fmt.Errorf("unexpected </%s> before root element", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(strings.TrimPrefix(string(t), "\ufeff")) != "" {
				return xml.StartElement{}, errors.New("text before root element")
			}
		}
	}
}

// expectEOF rejects documents with content after the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("junk after document element: <%s>", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return errors.New("junk after document element")
			}
		}
	}
}

// aggregateSuite adds a suite's cases to results, then recurses into
// nested suites.
func aggregateSuite(suite TestSuite, results *Results) {
	failures := 0
	for _, tc := range suite.Cases {
		results.Total++
		if tc.Failed() {
			failures++
			results.Failed++
			results.FailedTests = append(results.FailedTests, tc.Label())
		}
	}
	logSuiteSummary(suite.Name, len(suite.Cases), failures)

	for _, child := range suite.Suites {
		aggregateSuite(child, results)
	}
}

func logSuiteSummary(name string, cases, failures int) {
	logrus.Debugf("Suite: %s | Tests: %d | Failures: %d", name, cases, failures)
}
