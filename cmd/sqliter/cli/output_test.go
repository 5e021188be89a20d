// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bureau-foundation/sqliter/lib/codec"
)

func sampleResult() *ResultSet {
	return &ResultSet{
		Columns: []string{"id", "name", "score", "data"},
		Rows: [][]any{
			{int64(1), "alpha", 2.5, []byte{0xca, 0xfe}},
			{int64(2), "line\nbreak", nil, nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"", "table", "json", "cbor"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected an error for xml")
	}
	// A buffer is not a terminal.
	if got := FormatAuto.Resolve(&bytes.Buffer{}); got != FormatJSON {
		t.Errorf("auto format for a pipe = %q, want json", got)
	}
}

func TestWriteResult_Table(t *testing.T) {
	var output bytes.Buffer
	if err := WriteResult(&output, FormatTable, sampleResult()); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", output.String())
	}
	if !strings.Contains(lines[1], "x'cafe'") {
		t.Errorf("blob should print as hex literal: %q", lines[1])
	}
	if !strings.Contains(lines[2], `line\nbreak`) || !strings.Contains(lines[2], "NULL") {
		t.Errorf("unexpected second row: %q", lines[2])
	}
}

func TestWriteResult_JSON(t *testing.T) {
	var output bytes.Buffer
	if err := WriteResult(&output, FormatJSON, sampleResult()); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	var decoded struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal(output.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded.Rows) != 2 || decoded.Rows[0][1] != "alpha" {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestWriteResult_EmptyJSON(t *testing.T) {
	var output bytes.Buffer
	if err := WriteResult(&output, FormatJSON, &ResultSet{Columns: []string{"n"}}); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if !strings.Contains(output.String(), `"rows": []`) {
		t.Errorf("empty result should have an empty rows array: %s", output.String())
	}
}

func TestWriteResult_CBOR(t *testing.T) {
	var output bytes.Buffer
	if err := WriteResult(&output, FormatCBOR, sampleResult()); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	var decoded ResultSet
	if err := codec.Unmarshal(output.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not CBOR: %v", err)
	}
	blob, ok := decoded.Rows[0][3].([]byte)
	if !ok || !bytes.Equal(blob, []byte{0xca, 0xfe}) {
		t.Errorf("blob did not survive as a byte string: %#v", decoded.Rows[0][3])
	}
}
