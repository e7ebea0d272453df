package models

// Location is a named farm or market point.
type Location struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Point Point  `json:"point"`
}

// Locations is the location catalog response.
type Locations struct {
	Region string     `json:"region"`
	Items  []Location `json:"items"`
}

// CargoProfile describes one cargo profile and its effect on travel time.
type CargoProfile struct {
	Profile        string   `json:"profile"`
	Multiplier     float64  `json:"multiplier"`
	Priority       string   `json:"priority"`
	StopIntervalKm float64  `json:"stopIntervalKm"`
	Examples       []string `json:"examples"`
}

// CargoProfiles is the cargo profile catalog response.
type CargoProfiles struct {
	BaseSpeedKmh   float64        `json:"baseSpeedKmh"`
	DefaultProfile string         `json:"defaultProfile"`
	Items          []CargoProfile `json:"items"`
}

// Enums represents the enum values used by the API.
type Enums struct {
	CargoProfiles []string `json:"cargoProfiles"`
	RiskLevels    []string `json:"riskLevels"`
	Conditions    []string `json:"conditions"`
	Buckets       []string `json:"buckets"`
	Decisions     []string `json:"decisions"`
	Warnings      []string `json:"warnings"`
}
