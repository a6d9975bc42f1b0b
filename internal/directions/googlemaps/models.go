package googlemaps

// Wire types for the Google Maps Directions API response.
// Only the fields the engine consumes are mapped.

type directionsResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []apiRoute `json:"routes"`
}

type apiRoute struct {
	Legs             []apiLeg    `json:"legs"`
	WaypointOrder    []int       `json:"waypoint_order"`
	OverviewPolyline apiPolyline `json:"overview_polyline"`
}

type apiLeg struct {
	Distance apiValue `json:"distance"`
	Duration apiValue `json:"duration"`
}

type apiValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type apiPolyline struct {
	Points string `json:"points"`
}

// Directions API status codes.
const (
	statusOK                  = "OK"
	statusZeroResults         = "ZERO_RESULTS"
	statusNotFound            = "NOT_FOUND"
	statusInvalidRequest      = "INVALID_REQUEST"
	statusMaxWaypointsExceeded = "MAX_WAYPOINTS_EXCEEDED"
	statusOverQueryLimit      = "OVER_QUERY_LIMIT"
	statusRequestDenied       = "REQUEST_DENIED"
)
