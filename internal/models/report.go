package models

// AutocompleteSignal is a de-duplicated package suggestion shown while
// editing an attribution. Comments carries the comment of the first
// occurrence; Comment of the embedded record is always empty.
type AutocompleteSignal struct {
	PackageInfo
	Count    int      `json:"count"`
	Comments []string `json:"comments,omitempty"`
}

// PieChartData is one named slice of a chart.
type PieChartData struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
