package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pgschema/sqlschema/internal/version"
	"github.com/pgschema/sqlschema/ir"
)

const (
	schemaHeaderPrefix  = "-- Dumped from schema: "
	dialectHeaderPrefix = "-- Dialect: "
)

// DumpHeader is the metadata a dump records in its leading comments.
type DumpHeader struct {
	Schema  string
	Dialect string
}

// FormatDumpHeader renders the comment block written at the top of a dump.
func FormatDumpHeader(serverVersion string, d ir.Dialect, schema string) string {
	var header strings.Builder
	header.WriteString("--\n")
	header.WriteString("-- sqlschema database dump\n")
	header.WriteString("--\n")
	header.WriteString("\n")
	fmt.Fprintf(&header, "-- Dumped from database version %s\n", serverVersion)
	fmt.Fprintf(&header, "-- Dumped by %s\n", version.App())
	fmt.Fprintf(&header, "%s%s\n", dialectHeaderPrefix, d)
	if schema != "" {
		fmt.Fprintf(&header, "%s%s\n", schemaHeaderPrefix, schema)
	}
	header.WriteString("\n")
	return header.String()
}

// DetectDumpHeader reads the header of a dump file. Fields that are absent
// are left empty.
func DetectDumpHeader(filePath string) (DumpHeader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return DumpHeader{}, err
	}
	defer f.Close()

	return detectHeaderFromReader(f)
}

// detectHeaderFromReader only scans the first 20 lines (header area).
func detectHeaderFromReader(r io.Reader) (DumpHeader, error) {
	var header DumpHeader
	scanner := bufio.NewScanner(r)
	for i := 0; i < 20 && scanner.Scan(); i++ {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, schemaHeaderPrefix):
			header.Schema = strings.TrimSpace(line[len(schemaHeaderPrefix):])
		case strings.HasPrefix(line, dialectHeaderPrefix):
			header.Dialect = strings.TrimSpace(line[len(dialectHeaderPrefix):])
		}
	}
	return header, scanner.Err()
}
