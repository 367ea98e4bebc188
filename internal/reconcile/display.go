package reconcile

// Recommendation tags reported by the device.
const (
	RecommendationDry      = "SUHO"
	RecommendationOptimal  = "OPTIMALNO"
	RecommendationWet      = "VLAZNO"
	RecommendationWetLatin = "VLAŽNO"
)

// Display colors.
const (
	ColorDry     = "#FF6B6B"
	ColorOptimal = "#51CF66"
	ColorWet     = "#4DABF7"
	ColorUnknown = "#ADB5BD"

	ServoColorOpen    = "#FF6B6B"
	ServoColorHalf    = "#FFB347"
	ServoColorDefault = "#4ECDC4"
)

// Servo status texts.
const (
	ServoOpen   = "valve open"
	ServoHalf   = "half-open"
	ServoClosed = "valve closed"
	ServoMoving = "moving..."
)

// RecommendationColor maps a recommendation tag to its display color.
// Unknown tags are grey.
func RecommendationColor(rec string) string {
	switch rec {
	case RecommendationDry:
		return ColorDry
	case RecommendationOptimal:
		return ColorOptimal
	case RecommendationWet, RecommendationWetLatin:
		return ColorWet
	default:
		return ColorUnknown
	}
}

// RecommendationText maps a recommendation tag to operator text.
// Unknown tags are returned unchanged.
func RecommendationText(rec string) string {
	switch rec {
	case RecommendationDry:
		return "watering needed"
	case RecommendationOptimal:
		return "moisture ideal"
	case RecommendationWet, RecommendationWetLatin:
		return "soil saturated"
	default:
		return rec
	}
}

// ServoStatus describes the valve for a servo angle.
// 21..79 and 101..159 are travel ranges and report ServoMoving.
func ServoStatus(pos int) string {
	switch {
	case pos >= 160:
		return ServoOpen
	case pos >= 80 && pos <= 100:
		return ServoHalf
	case pos <= 20:
		return ServoClosed
	default:
		return ServoMoving
	}
}

// ServoColor has no closed color: closed and moving share ServoColorDefault.
func ServoColor(pos int) string {
	switch {
	case pos >= 160:
		return ServoColorOpen
	case pos >= 80 && pos <= 100:
		return ServoColorHalf
	default:
		return ServoColorDefault
	}
}
