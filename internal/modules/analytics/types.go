package analytics

// Overview summarizes every matched record in one group. With no match it
// is returned zero-filled.
type Overview struct {
	TotalRecords         int64   `json:"totalRecords"`
	AvgIntensity         float64 `json:"avgIntensity"`
	AvgRelevance         float64 `json:"avgRelevance"`
	AvgLikelihood        float64 `json:"avgLikelihood"`
	MaxIntensity         float64 `json:"maxIntensity"`
	MinIntensity         float64 `json:"minIntensity"`
	UniqueCountriesCount int     `json:"uniqueCountriesCount"`
	UniqueSectorsCount   int     `json:"uniqueSectorsCount"`
	UniqueTopicsCount    int     `json:"uniqueTopicsCount"`
}

type RegionBreakdown struct {
	Region        string  `json:"region"`
	Count         int64   `json:"count"`
	AvgIntensity  float64 `json:"avgIntensity"`
	AvgRelevance  float64 `json:"avgRelevance"`
	AvgLikelihood float64 `json:"avgLikelihood"`
	MaxIntensity  float64 `json:"maxIntensity"`
	MinIntensity  float64 `json:"minIntensity"`
}

type TopicBreakdown struct {
	Topic          string  `json:"topic"`
	Count          int64   `json:"count"`
	AvgIntensity   float64 `json:"avgIntensity"`
	AvgRelevance   float64 `json:"avgRelevance"`
	TotalImpact    float64 `json:"totalImpact"`
	CountriesCount int     `json:"countriesCount"`
	SectorsCount   int     `json:"sectorsCount"`
}

type CountryBreakdown struct {
	Country        string  `json:"country"`
	Count          int64   `json:"count"`
	AvgIntensity   float64 `json:"avgIntensity"`
	AvgRelevance   float64 `json:"avgRelevance"`
	AvgLikelihood  float64 `json:"avgLikelihood"`
	TotalIntensity float64 `json:"totalIntensity"`
	SectorsCount   int     `json:"sectorsCount"`
	TopicsCount    int     `json:"topicsCount"`
}

type YearlyTrend struct {
	Year          int     `json:"year"`
	Count         int64   `json:"count"`
	AvgIntensity  float64 `json:"avgIntensity"`
	AvgRelevance  float64 `json:"avgRelevance"`
	AvgLikelihood float64 `json:"avgLikelihood"`
	MaxIntensity  float64 `json:"maxIntensity"`
	ActiveSectors int     `json:"activeSectors"`
}

type SectorBreakdown struct {
	Sector         string  `json:"sector"`
	Count          int64   `json:"count"`
	AvgIntensity   float64 `json:"avgIntensity"`
	AvgRelevance   float64 `json:"avgRelevance"`
	AvgLikelihood  float64 `json:"avgLikelihood"`
	TotalIntensity float64 `json:"totalIntensity"`
	TopicsCount    int     `json:"topicsCount"`
	CountriesCount int     `json:"countriesCount"`
}

type PestleBreakdown struct {
	Pestle        string  `json:"pestle"`
	Count         int64   `json:"count"`
	AvgIntensity  float64 `json:"avgIntensity"`
	AvgRelevance  float64 `json:"avgRelevance"`
	AvgLikelihood float64 `json:"avgLikelihood"`
	SectorsCount  int     `json:"sectorsCount"`
}

// CorrelationPoint is one record's scores with its sector and region,
// which read "Unknown" when unset.
type CorrelationPoint struct {
	Intensity  float64 `json:"intensity"`
	Relevance  float64 `json:"relevance"`
	Likelihood float64 `json:"likelihood"`
	Sector     string  `json:"sector"`
	Region     string  `json:"region"`
}
