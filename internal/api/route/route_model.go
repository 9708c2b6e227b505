package route

import "reccalc/internal/types"

// RouteRequest is the create/update payload. Version is only read on update,
// where it must echo the version the client last saw.
type RouteRequest struct {
	RouteName         string    `json:"route_name"`
	RouteType         string    `json:"route_type"`
	RouteTimeType     string    `json:"route_time_type"`
	TSut              float64   `json:"t_sut"`
	TSezon            int       `json:"t_sezon"`
	GS                int       `json:"gs"`
	TL                int       `json:"tl"`
	TDArray           []float64 `json:"td_array"`
	DTArray           []float64 `json:"dt_array"`
	DGArray           []float64 `json:"dg_array"`
	VArray            []float64 `json:"v_array"`
	EcologicalFactors []int     `json:"ecological_factors"`
	ManagementFactors []int     `json:"management_factors"`
	Version           int       `json:"version,omitempty"`
}

func (req *RouteRequest) toParams() types.RouteParams {
	return types.RouteParams{
		RouteName:         req.RouteName,
		RouteType:         req.RouteType,
		RouteTimeType:     req.RouteTimeType,
		TSut:              req.TSut,
		TSezon:            req.TSezon,
		GS:                req.GS,
		TL:                req.TL,
		TDArray:           req.TDArray,
		DTArray:           req.DTArray,
		DGArray:           req.DGArray,
		VArray:            req.VArray,
		EcologicalFactors: req.EcologicalFactors,
		ManagementFactors: req.ManagementFactors,
	}
}
