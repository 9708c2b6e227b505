package types

import (
	"time"

	"github.com/google/uuid"
)

// Route time disciplines. Fixed-time routes have a bounded daily window,
// unlimited-time routes are multi-day with a season-long budget.
const (
	RouteTimeFixed     = "fixed_time"
	RouteTimeUnlimited = "unlimited_time"
)

// Route is a stored recreational route owned by a user. Version is the
// optimistic-concurrency stamp: every successful update increments it, and
// writers must present the version they read.
type Route struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	RouteName         string    `json:"route_name"`
	RouteType         string    `json:"route_type"`
	RouteTimeType     string    `json:"route_time_type"`
	TSut              float64   `json:"t_sut"`    // daily availability window, hours
	TSezon            int       `json:"t_sezon"`  // season length, days
	GS                int       `json:"gs"`       // average group size
	TL                int       `json:"tl"`       // route traversal time, days
	TDArray           []float64 `json:"td_array"` // per-segment traversal times
	DTArray           []float64 `json:"dt_array"` // segment lengths
	DGArray           []float64 `json:"dg_array"` // inter-group distances
	VArray            []float64 `json:"v_array"`  // movement speeds
	EcologicalFactors []int     `json:"ecological_factors"`
	ManagementFactors []int     `json:"management_factors"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RouteCalculation is the carrying-capacity result attached one-to-one to a
// route. BCC/PCC/RCC/MaxGroups are nullable: which of them apply depends on
// the route's time discipline.
type RouteCalculation struct {
	ID           int64     `json:"id"`
	RouteID      uuid.UUID `json:"route_id"`
	CFN          float64   `json:"cfn"`
	MCoefficient float64   `json:"m_coefficient"`
	BCC          *int      `json:"bcc"`
	PCC          *int      `json:"pcc"`
	RCC          *int      `json:"rcc"`
	MaxGroups    *int      `json:"max_groups"`
	CreatedAt    time.Time `json:"created_at"`
}

// RouteParams carries the mutable route fields for create and update.
type RouteParams struct {
	RouteName         string
	RouteType         string
	RouteTimeType     string
	TSut              float64
	TSezon            int
	GS                int
	TL                int
	TDArray           []float64
	DTArray           []float64
	DGArray           []float64
	VArray            []float64
	EcologicalFactors []int
	ManagementFactors []int
}

// RouteDetail is a route with its calculation and the recommendations that
// apply to its selected factors.
type RouteDetail struct {
	Route           Route             `json:"route"`
	Calculation     *RouteCalculation `json:"calculation,omitempty"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// RouteListItem is the trimmed listing view.
type RouteListItem struct {
	ID            uuid.UUID `json:"id"`
	RouteName     string    `json:"route_name"`
	RouteType     string    `json:"route_type"`
	RouteTimeType string    `json:"route_time_type"`
	TL            int       `json:"tl"`
	Version       int       `json:"version"`
	BCC           *int      `json:"bcc,omitempty"`
	PCC           *int      `json:"pcc,omitempty"`
	RCC           *int      `json:"rcc,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Page is the pagination envelope for listings.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}
