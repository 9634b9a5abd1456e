package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgfilter/internal/dataurl"
	"github.com/AnyUserName/imgfilter/internal/filter"
	"github.com/AnyUserName/imgfilter/internal/preset"
	"github.com/AnyUserName/imgfilter/internal/report"
)

var (
	applyFilter  string
	applyOut     string
	applyFormat  string
	applyDataURL bool
	applyReport  string
	applyTimeout time.Duration
)

var applyCmd = &cobra.Command{
	Use:   "apply <input|->",
	Short: "Apply a filter preset to an image",
	Long: `Reads an image file (or stdin with "-"), applies the named preset and
writes the result. Input may be raw image bytes or a data: URL.

Unknown presets and "none" pass the input through unchanged. Filtered output
is always lossy (JPEG by default), so transparency is not preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFilter, "filter", "f", preset.None,
		"filter preset ("+strings.Join(preset.Names(), ", ")+")")
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "-", "output path (- = stdout)")
	applyCmd.Flags().StringVar(&applyFormat, "format", "jpeg", "lossy output format: jpeg, webp, avif")
	applyCmd.Flags().BoolVar(&applyDataURL, "data-url", false, "write a data: URL instead of raw bytes")
	applyCmd.Flags().StringVar(&applyReport, "report", "", "write a JSON report to this path")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 0, "give up filtering after this long (0 = no limit)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	start := time.Now()

	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	src := string(raw)
	if !dataurl.IsDataURL(src) {
		src = dataurl.FromBytes(raw)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if applyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, applyTimeout)
		defer cancel()
	}

	a := filter.New(filter.WithLogger(logger), filter.WithFormat(applyFormat))
	res := a.ApplyResult(ctx, src, applyFilter)

	logger.WithFields(logrus.Fields{
		"filter":  applyFilter,
		"applied": res.Applied,
		"format":  a.Format(),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("apply finished")

	if err := writeOutput(cmd.OutOrStdout(), applyOut, res.Output, applyDataURL); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if applyReport != "" {
		r := report.New(applyFilter)
		r.Descriptor = res.Descriptor
		r.Applied = res.Applied
		if res.Err != nil {
			r.Fallback = res.Err.Error()
		}
		r.Input = report.Describe(src)
		r.Output = report.Describe(res.Output)
		if err := report.WriteJSON(r, applyReport); err != nil {
			return err
		}
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes s as a data URL or, when it parses, as its raw payload.
func writeOutput(stdout io.Writer, path, s string, asDataURL bool) error {
	data := []byte(s)
	if !asDataURL {
		if d, err := dataurl.Parse(s); err == nil {
			data = d.Data
		}
	}
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
