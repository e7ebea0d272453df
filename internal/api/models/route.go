package models

// RouteComputeRequest starts a new planning session.
// Endpoints are given either as coordinates or as catalog names.
type RouteComputeRequest struct {
	Origin          *Point `json:"origin,omitempty"`
	Destination     *Point `json:"destination,omitempty"`
	OriginName      string `json:"originName,omitempty"`
	DestinationName string `json:"destinationName,omitempty"`
	CargoProfile    string `json:"cargoProfile,omitempty"`
}

// RouteComputeResponse carries the new session and the token that addresses it.
type RouteComputeResponse struct {
	SessionID    string      `json:"sessionId"`
	SessionToken string      `json:"sessionToken"`
	ExpiresAt    Timestamp   `json:"expiresAt"`
	Session      SessionView `json:"session"`
}

// Candidate is one ranked route option.
type Candidate struct {
	ID          int     `json:"id"`
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Geometry    string  `json:"geometry"` // encoded polyline, precision 5
	Points      int     `json:"points"`
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin float64 `json:"durationMin"`
	Primary     bool    `json:"primary"`
	Active      bool    `json:"active"`
	Bucket      string  `json:"bucket"`
	Source      string  `json:"source"`
	Summary     string  `json:"summary,omitempty"`
}

// Warning is a non-fatal condition attached to a response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WeatherSample is one observation along a route.
type WeatherSample struct {
	Point           Point     `json:"point"`
	PrecipitationMm float64   `json:"precipitationMm"`
	WindKmh         float64   `json:"windKmh"`
	TemperatureC    float64   `json:"temperatureC"`
	Condition       string    `json:"condition"`
	Description     string    `json:"description,omitempty"`
	ObservedAt      Timestamp `json:"observedAt"`
	Provider        string    `json:"provider"`
}

// RiskTrigger names the sample and reason behind a non-safe level.
type RiskTrigger struct {
	Point  Point  `json:"point"`
	Level  string `json:"level"`
	Reason string `json:"reason"`
}

// Assessment is the weather risk of one candidate.
type Assessment struct {
	CandidateID        int             `json:"candidateId"`
	Level              string          `json:"level"`
	SafetyScore        float64         `json:"safetyScore"`
	WeatherUnavailable bool            `json:"weatherUnavailable"`
	Triggers           []RiskTrigger   `json:"triggers"`
	Samples            []WeatherSample `json:"samples"`
}

// Advice is the cargo handling advisory for the active route.
type Advice struct {
	RecommendedStops int      `json:"recommendedStops"`
	StopIntervalKm   float64  `json:"stopIntervalKm"`
	Priority         string   `json:"priority"`
	Examples         []string `json:"examples"`
}

// Suitability grades how well the active route suits the cargo.
type Suitability struct {
	Score float64 `json:"score"`
	Grade string  `json:"grade"`
}

// SessionView is the current state of a planning session.
type SessionView struct {
	Origin       Point       `json:"origin"`
	Destination  Point       `json:"destination"`
	CargoProfile string      `json:"cargoProfile"`
	ActiveIndex  int         `json:"activeIndex"`
	Active       Candidate   `json:"active"`
	Candidates   []Candidate `json:"candidates"`
	Assessment   *Assessment `json:"assessment,omitempty"`
	Advice       Advice      `json:"advice"`
	Suitability  Suitability `json:"suitability"`
	Warnings     []Warning   `json:"warnings"`
}

// SelectRequest activates a candidate by its position in the ranked list.
type SelectRequest struct {
	Index *int `json:"index"`
}

// CargoRequest changes the session cargo profile.
type CargoRequest struct {
	CargoProfile string `json:"cargoProfile"`
}

// WeatherCheckResponse reports the weather evaluation of the active route.
type WeatherCheckResponse struct {
	Decision      string       `json:"decision"`
	PreviousIndex int          `json:"previousIndex"`
	ActiveIndex   int          `json:"activeIndex"`
	Rerouted      bool         `json:"rerouted"`
	Considered    []Assessment `json:"considered,omitempty"`
	Session       SessionView  `json:"session"`
}
