package main

import (
	"context"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/drone/drone-test-report/plugin"
)

func main() {
	var args plugin.Args
	if err := envconfig.Process("plugin", &args); err != nil {
		logrus.Fatalln(err)
	}

	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flags.StringVar(&args.JUnitReport, "junit-report", args.JUnitReport, "JUnit XML report to read")
	flags.StringVar(&args.TestLog, "test-log", args.TestLog, "ctest or Qt Test log to read")
	flags.StringVarP(&args.Output, "output", "o", args.Output, "file to append step outputs to")
	flags.StringVar(&args.LogLevel, "log-level", args.LogLevel, "log level")
	flags.Parse(os.Args[1:])

	logrus.SetLevel(plugin.ParseLogLevel(args.LogLevel))

	if err := plugin.ValidateInputs(args); err != nil {
		logrus.Fatalln(err)
	}

	if err := plugin.Exec(context.Background(), args); err != nil {
		logrus.Fatalln(err)
	}
}
