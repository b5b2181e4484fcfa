package excel

// ExcelConfig holds configuration for one spreadsheet or CSV source
type ExcelConfig struct {
	FilePath string `json:"file_path"`
	Sheet    string `json:"sheet"` // ignored for CSV; first sheet when empty
}
