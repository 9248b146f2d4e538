package filter

// Options lists the distinct non-empty values of every filterable
// dimension, sorted ascending.
type Options struct {
	Sectors   []string `json:"sectors"`
	Topics    []string `json:"topics"`
	Regions   []string `json:"regions"`
	Countries []string `json:"countries"`
	Pestles   []string `json:"pestles"`
	Sources   []string `json:"sources"`
	Cities    []string `json:"cities"`
	EndYears  []int    `json:"endYears"`
}

// Range is the observed span of a score. A nil *Range means the matched
// subset held no value for it.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CascadingOptions are the options remaining under the applied filters.
type CascadingOptions struct {
	Options
	IntensityRange  *Range `json:"intensityRange"`
	RelevanceRange  *Range `json:"relevanceRange"`
	LikelihoodRange *Range `json:"likelihoodRange"`
}

type Stat struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Statistics summarizes the scores of the matched subset.
type Statistics struct {
	TotalRecords    int64 `json:"totalRecords"`
	IntensityStats  Stat  `json:"intensityStats"`
	RelevanceStats  Stat  `json:"relevanceStats"`
	LikelihoodStats Stat  `json:"likelihoodStats"`
}
