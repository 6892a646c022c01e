package core

// Attraction represents a candidate attraction emitted by the retriever.
// Coordinates may be absent until the gazetteer resolves them; everything
// else is immutable once the retriever returns the record.
type Attraction struct {
	ID                   string   `json:"id"`                     // Stable identifier (vector index point ID)
	Name                 string   `json:"name"`                   // Display name, also the gazetteer lookup key
	Category             string   `json:"category"`               // e.g. "Historical", "Religious", "Nature"
	Description          string   `json:"description"`            // Short free-text description
	Region               string   `json:"region"`                 // Region as stored in the index payload
	Latitude             *float64 `json:"latitude"`               // Resolved latitude (nil until enriched)
	Longitude            *float64 `json:"longitude"`              // Resolved longitude (nil until enriched)
	CoordinateSource     string   `json:"coordinate_source"`      // "exact", "fuzzy" or "fallback"
	NeuralScore          float64  `json:"neural_score"`           // Raw ranker output in [0,1]
	SimilarityScore      float64  `json:"similarity_score"`       // Cosine similarity from the vector index
	PearScore            float64  `json:"pear_score"`             // Fused relevance score in [0,1]
	VisitDurationMinutes int      `json:"visit_duration_minutes"` // Suggested visit length (default 120)
}

// HasCoordinates reports whether the attraction can be placed on the map.
func (a *Attraction) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Coords returns the attraction's coordinates. Callers must check
// HasCoordinates first; missing values come back as (0, 0).
func (a *Attraction) Coords() (lat, lng float64) {
	if a.Latitude != nil {
		lat = *a.Latitude
	}
	if a.Longitude != nil {
		lng = *a.Longitude
	}
	return lat, lng
}

// RouteInfo is the travel cost between two coordinates.
type RouteInfo struct {
	DistanceKm      float64 `json:"distance_km"`      // Driving (or great-circle) distance
	DurationMinutes float64 `json:"duration_minutes"` // Estimated driving time
	Fallback        bool    `json:"fallback"`         // True when computed from haversine, not a provider
}

// GeoCluster is a day-sized geographic cluster of attractions.
type GeoCluster struct {
	ClusterID              int          `json:"cluster_id"`
	CenterLat              float64      `json:"center_lat"` // Mean latitude of members
	CenterLng              float64      `json:"center_lng"` // Mean longitude of members
	Attractions            []Attraction `json:"attractions"`
	TotalPearScore         float64      `json:"total_pear_score"` // Sum of member PEAR scores
	EstimatedTimeHours     float64      `json:"estimated_time_hours"`
	TotalTravelTimeMinutes float64      `json:"total_travel_time_minutes"`
	ValuePerHour           float64      `json:"value_per_hour"`
	RegionName             string       `json:"region_name"`
	MaxTravelDistanceKm    float64      `json:"max_travel_distance_km"` // Max pairwise haversine between members
	IsBalanced             bool         `json:"is_balanced"`
	OptimalOrder           []int        `json:"optimal_order"` // Permutation of member indices (visiting order)
}

// Size returns the number of attractions in the cluster.
func (c *GeoCluster) Size() int { return len(c.Attractions) }

// OrderedAttractions returns the members arranged by OptimalOrder, or in
// stored order when no ordering has been computed.
func (c *GeoCluster) OrderedAttractions() []Attraction {
	if len(c.OptimalOrder) != len(c.Attractions) {
		out := make([]Attraction, len(c.Attractions))
		copy(out, c.Attractions)
		return out
	}
	out := make([]Attraction, 0, len(c.Attractions))
	for _, idx := range c.OptimalOrder {
		out = append(out, c.Attractions[idx])
	}
	return out
}

// ClusterInfo is the response-facing summary of a GeoCluster.
type ClusterInfo struct {
	ClusterID            int     `json:"cluster_id"`
	RegionName           string  `json:"region_name"`
	CenterLat            float64 `json:"center_lat"`
	CenterLng            float64 `json:"center_lng"`
	TotalAttractions     int     `json:"total_attractions"`
	TotalPearScore       float64 `json:"total_pear_score"`
	EstimatedTimeHours   float64 `json:"estimated_time_hours"`
	TravelTimeMinutes    float64 `json:"travel_time_minutes"`
	ValuePerHour         float64 `json:"value_per_hour"`
	IsBalanced           bool    `json:"is_balanced"`
	OptimalVisitingOrder []int   `json:"optimal_visiting_order"`
}

// AttractionInfo is the response-facing view of an attraction with its
// position in the day's visiting order (1-based).
type AttractionInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Region      string   `json:"region"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	PearScore   float64  `json:"pear_score"`
	VisitOrder  int      `json:"visit_order"`
}

// DayItinerary is one day of the plan: a cluster and its ordered stops.
type DayItinerary struct {
	Day                     int              `json:"day"`
	ClusterInfo             ClusterInfo      `json:"cluster_info"`
	Attractions             []AttractionInfo `json:"attractions"`
	TotalTravelDistanceKm   float64          `json:"total_travel_distance_km"`
	EstimatedTotalTimeHours float64          `json:"estimated_total_time_hours"`
}

// OverallStats summarizes a generated plan.
type OverallStats struct {
	TotalAttractions    int     `json:"total_attractions"`
	TotalTravelKm       float64 `json:"total_travel_distance_km"`
	AverageValuePerHour float64 `json:"average_value_per_hour"`
	BalancedClusters    int     `json:"balanced_clusters"`
	TravelOptimization  string  `json:"travel_optimization"`  // Whether real routing or haversine fallback was used
	ClusteringAlgorithm string  `json:"clustering_algorithm"` // Algorithm that produced the day clusters
}

// PlanResponse is the full result of a planning request.
type PlanResponse struct {
	PlanID           string         `json:"plan_id"` // UUID assigned per request
	Query            string         `json:"query"`   // Echo of the user query
	TotalDays        int            `json:"total_days"`
	TotalAttractions int            `json:"total_attractions"`
	DailyItineraries []DayItinerary `json:"daily_itineraries"`
	OverallStats     OverallStats   `json:"overall_stats"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
}

// UserContext carries the structured preference record used to build the
// context embedding text. Zero values mean "not specified".
type UserContext struct {
	Interests          []string `json:"interests"`
	TripType           string   `json:"trip_type"`
	Budget             string   `json:"budget"`
	DurationDays       int      `json:"duration"`
	GroupSize          int      `json:"group_size"`
	CulturalInterest   int      `json:"cultural_interest"`   // 1-10
	AdventureLevel     int      `json:"adventure_level"`     // 1-10
	NatureAppreciation int      `json:"nature_appreciation"` // 1-10
}

// Float64Ptr returns a pointer to v. Convenience for building Attractions.
func Float64Ptr(v float64) *float64 { return &v }
