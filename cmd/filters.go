package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AnyUserName/imgfilter/internal/preset"
)

var filtersOutput string

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List filter presets and their effect descriptors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printFilters(cmd.OutOrStdout(), filtersOutput)
	},
}

func init() {
	filtersCmd.Flags().StringVarP(&filtersOutput, "output", "O", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(filtersCmd)
}

type filterEntry struct {
	Name       string `json:"name" yaml:"name"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
	Stages     int    `json:"stages" yaml:"stages"`
}

func printFilters(w io.Writer, format string) error {
	var entries []filterEntry
	for _, p := range preset.All() {
		entries = append(entries, filterEntry{
			Name:       p.Name,
			Descriptor: p.Descriptor,
			Stages:     len(p.Effect().Stages()),
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDESCRIPTOR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Descriptor)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
