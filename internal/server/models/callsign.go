package models

import "time"

// Card template resolution. Text positions are pixel coordinates on this
// canvas.
const (
	CanvasWidth  = 4837
	CanvasHeight = 3078
)

// TextPosition is a pixel anchor for one overlay field on the card template.
type TextPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CallsignConfig is the per-callsign card configuration document. ID is the
// lowercase callsign and is the single ownership/namespacing key.
type CallsignConfig struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	QRZLink       string                  `json:"qrzLink"`
	TextPositions map[string]TextPosition `json:"textPositions"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// DefaultTextPositions returns the six anchor points matching the fixed
// template resolution. Used when a callsign is created without explicit
// positions.
func DefaultTextPositions() map[string]TextPosition {
	return map[string]TextPosition{
		"callsign":    {X: 3368, Y: 2026},
		"utcDateTime": {X: 2623, Y: 2499},
		"frequency":   {X: 3398, Y: 2499},
		"mode":        {X: 3906, Y: 2499},
		"rst":         {X: 4353, Y: 2499},
		"additional":  {X: 2027, Y: 2760},
	}
}
