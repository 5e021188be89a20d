// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/bureau-foundation/sqliter/lib/codec"
)

// Format selects how command results are written.
type Format string

const (
	// FormatAuto is a table on a terminal and JSON otherwise.
	FormatAuto  Format = ""
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCBOR  Format = "cbor"
)

// ParseFormat parses the value of a --format flag.
func ParseFormat(name string) (Format, error) {
	switch format := Format(name); format {
	case FormatAuto, FormatTable, FormatJSON, FormatCBOR:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or cbor)", name)
	}
}

// Resolve replaces FormatAuto with the format suited to w.
func (f Format) Resolve(w io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if IsTerminal(w) {
		return FormatTable
	}
	return FormatJSON
}

// ResultSet is the rows produced by a query. Values are nil, int64,
// float64, string or []byte.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// WriteResult writes result to w in format.
func WriteResult(w io.Writer, format Format, result *ResultSet) error {
	if result.Rows == nil {
		result.Rows = [][]any{}
	}
	switch format.Resolve(w) {
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatCBOR:
		return codec.NewEncoder(w).Encode(result)
	case FormatTable:
		return writeTable(w, result)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteJSON marshals value as indented JSON and writes it to w.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(w io.Writer, result *ResultSet) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for index, column := range result.Columns {
		if index > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, column)
	}
	fmt.Fprintln(tw)
	for _, row := range result.Rows {
		for index, value := range row {
			if index > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, tableCell(value))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func tableCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		// Escape control characters so one value stays on one line.
		quoted := strconv.Quote(v)
		return quoted[1 : len(quoted)-1]
	case []byte:
		return "x'" + hex.EncodeToString(v) + "'"
	default:
		return fmt.Sprint(v)
	}
}
