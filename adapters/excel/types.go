package excel

import "mvam/domain/survey"

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData = survey.Row

// ExcelData represents the complete sheet or CSV dataset
type ExcelData = survey.Table
