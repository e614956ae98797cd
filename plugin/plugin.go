package plugin

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Args represents the plugin's configurable arguments.
type Args struct {
	JUnitReport string `envconfig:"JUNIT_REPORT"`
	TestLog     string `envconfig:"TEST_LOG"`
	Output      string `envconfig:"GITHUB_OUTPUT"`
	LogLevel    string `split_words:"true" default:"info"`
}

// ValidateInputs ensures the user inputs meet the plugin requirements.
func ValidateInputs(args Args) error {
	if args.Output != "" {
		if info, err := os.Stat(args.Output); err == nil && info.IsDir() {
			return errors.New("output path is a directory. Point GITHUB_OUTPUT at a file")
		}
	}
	return nil
}

// ParseLogLevel resolves the configured level, falling back to info so a
// bad value never stops the outputs from being written.
func ParseLogLevel(level string) logrus.Level {
	if level == "" {
		return logrus.InfoLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("Level", level).Warnf("Unknown log level, using info. Use one of: %s", levelNames())
		return logrus.InfoLevel
	}
	return parsed
}

func levelNames() string {
	names := make([]string, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}

// Exec aggregates the configured reports and writes step outputs. Unreadable
// or malformed inputs count as empty; only a failed output write is an error.
func Exec(ctx context.Context, args Args) error {
	results := Aggregate(args.JUnitReport, args.TestLog)

	logrus.Infof("\n===============================================")
	logrus.Infof("\nTotal Tests Results: %d | Passed: %d | Failures: %d", results.Total, results.Passed(), results.Failed)
	for _, name := range results.FailedTests {
		logrus.Infof("\n- Failed: %s", name)
	}
	logrus.Infof("\n===============================================")

	if args.Output == "" {
		logrus.Debug("No output file configured, skipping step outputs")
		return nil
	}
	if err := writeOutputs(args.Output, results); err != nil {
		logrus.WithError(err).WithField("File", args.Output).Error("Failed to write step outputs")
		return err
	}
	return nil
}

// Aggregate parses whichever of the two inputs exist and reconciles them.
// Empty paths and missing files contribute nothing.
func Aggregate(junitPath, logPath string) Results {
	var junit Results
	if fileExists(junitPath) {
		res, err := parseJUnitFile(junitPath)
		if err != nil {
			logrus.WithError(err).WithField("File", junitPath).Warn("Ignoring unreadable JUnit report")
			res = Results{}
		}
		junit = res
	}

	if !fileExists(logPath) {
		return junit
	}
	logResults, strategy, err := parseTestLogFile(logPath)
	if err != nil {
		logrus.WithError(err).WithField("File", logPath).Warn("Test log was only partially read")
	}
	logrus.WithField("Strategy", strategy).Debug("Parsed test log")
	return Reconcile(junit, logResults)
}

// Reconcile keeps the JUnit results unless the log reports more tests or
// more failures.
func Reconcile(junit, log Results) Results {
	if log.Total > junit.Total || log.Failed > junit.Failed {
		return log
	}
	return junit
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
