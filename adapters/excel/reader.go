package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mvam/domain/survey"
	"mvam/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	trim     bool // strip surrounding whitespace from headers and cells
	log      *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, log: internal.DefaultLogger}
}

// NewReaderFromConfig creates a reader for the configured file and sheet
func NewReaderFromConfig(config ExcelConfig) *DataReader {
	return NewDataReader(config.FilePath).WithSheet(config.Sheet)
}

// WithSheet selects the worksheet to read; CSV files ignore it
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// Trimmed strips surrounding whitespace from headers and cells. Stored
// artifacts are read verbatim so a reload matches what was written.
func (r *DataReader) Trimmed() *DataReader {
	r.trim = true
	return r
}

// WithLogger replaces the default logger
func (r *DataReader) WithLogger(log *internal.Logger) *DataReader {
	r.log = log
	return r
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.log.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the selected sheet into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file %s has no sheets", r.filePath)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	r.log.Debug("[DataReader] Sheet %q read in %.2fms (%d rows)",
		sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return r.readCSV(file)
}

func (r *DataReader) readCSV(in io.Reader) (*ExcelData, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return r.processRows(rows)
}

// ReadCSV parses CSV content that is already in memory
func ReadCSV(in io.Reader) (*ExcelData, error) {
	return (&DataReader{fileType: "csv", log: internal.Discard()}).readCSV(in)
}

// processRows converts raw string rows into ExcelData format. Rows made only
// of empty cells are skipped; short rows are padded with empty strings.
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s file %s has no header row", strings.ToUpper(r.fileType), r.filePath)
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = r.cell(header)
	}

	data := survey.NewTable(headers...)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}

		rowData := make(RawRowData, len(headers))
		for j, header := range headers {
			if j < len(row) {
				rowData[header] = r.cell(row[j])
			} else {
				rowData[header] = ""
			}
		}
		data.Append(rowData)
	}

	r.log.Debug("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), data.Len())

	return data, nil
}

func (r *DataReader) cell(value string) string {
	if r.trim {
		return strings.TrimSpace(value)
	}
	return value
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
