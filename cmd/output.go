package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"zadapt/internal/adapter"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// attributer is any adapter result that renders as a host attribute bag.
type attributer interface {
	Attributes() *adapter.Response
}

func outputFormat() (string, error) {
	switch f := viper.GetString("output"); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want table, json or yaml)", f)
	}
}

// render writes items as a list of attribute bags in JSON or YAML, or
// hands a tabwriter to table for the default format.
func render[T attributer](w io.Writer, items []T, table func(tw *tabwriter.Writer)) error {
	bags := make([]*adapter.Response, len(items))
	for i, item := range items {
		bags[i] = item.Attributes()
	}
	return encode(w, bags, table)
}

// renderOne is render for a single result.
func renderOne(w io.Writer, item attributer, table func(tw *tabwriter.Writer)) error {
	return encode(w, item.Attributes(), table)
}

func encode(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}
