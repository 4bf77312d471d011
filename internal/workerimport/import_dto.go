package workerimport

// RowFailure describes one rejected row. Row is 1-based and excludes the
// header line.
type RowFailure struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ImportReport always satisfies Imported+Updated+Errors == Total.
type ImportReport struct {
	Imported int          `json:"imported"`
	Updated  int          `json:"updated"`
	Errors   int          `json:"errors"`
	Total    int          `json:"total"`
	Failures []RowFailure `json:"failures"`
}

type ImportResponse struct {
	Success bool `json:"success"`
	ImportReport
}

type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
