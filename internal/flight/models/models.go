// Package models holds the flight-plan types shared by the compliance
// validator client and the submission service.
package models

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Plan is one physical flight as declared by the registrant before takeoff.
// Field names follow the validator's wire schema.
type Plan struct {
	DroneName           string      `json:"droneName"`
	DroneModel          string      `json:"droneModel"`
	DroneType           string      `json:"droneType"`
	SerialNumber        string      `json:"serialNumber"`
	Weight              float64     `json:"weight"` // grams
	FlightPurpose       string      `json:"flightPurpose"`
	FlightDescription   string      `json:"flightDescription"`
	FlightDate          string      `json:"flightDate"` // YYYY-MM-DD
	StartTime           string      `json:"startTime"`  // HH:MM
	EndTime             string      `json:"endTime"`    // HH:MM
	DayNightOperation   string      `json:"dayNightOperation"`
	FlightAreaCenter    Coordinates `json:"flightAreaCenter"`
	FlightAreaRadius    float64     `json:"flightAreaRadius"`    // metres
	FlightAreaMaxHeight float64     `json:"flightAreaMaxHeight"` // metres AGL
	AdditionalNotes     string      `json:"additionalNotes,omitempty"`
}
