package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
	logger  = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "imgfilter",
	Short: "Apply named visual filters to images",
	Long: `imgfilter applies a named preset (sepia, bw, vintage) to an image and
re-encodes the result as a lossy image.

Filtering never fails: if an image cannot be decoded or rendered, the
original is written back unchanged and the cause is logged.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		initLogger(logger, verbose)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.WithError(err).Error("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imgfilter %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// initLogger logs to stderr: debug with full timestamps when verbose,
// warnings and above otherwise.
func initLogger(l *logrus.Logger, verbose bool) {
	l.SetOutput(os.Stderr)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}
