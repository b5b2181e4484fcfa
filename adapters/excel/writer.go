package excel

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSV writes the table header and rows in header order
func WriteCSV(w io.Writer, data *ExcelData) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(data.Records()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteCSVFile writes the table to path, creating parent directories. The
// file is written next to its destination and renamed into place so a failed
// run never leaves a truncated artifact behind.
func WriteCSVFile(path string, data *ExcelData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	buf := bufio.NewWriter(tmp)
	if err := WriteCSV(buf, data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
