package types

// Factor types for recommendations and correction coefficients.
const (
	FactorEcological = "ecological"
	FactorManagement = "management"
)

// Recommendation is a reference record describing a limiting factor and the
// management action that mitigates it. Impact is the factor's signed
// contribution to its correction coefficient (CFN or M).
type Recommendation struct {
	ID                 int64   `json:"id"`
	FactorType         string  `json:"factor_type"`
	FactorNumber       int     `json:"factor_number"`
	FactorDescription  string  `json:"factor_description"`
	RecommendationText string  `json:"recommendation_text"`
	Impact             float64 `json:"impact"`
}
