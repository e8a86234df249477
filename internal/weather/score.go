package weather

import "math"

// Farming-suitability scoring. Each sub-score uses a triangular tolerance
// band: full score inside the optimal range, linear decay to zero at the
// tolerance distance beyond the range edge.

// Sub-score fusion weights. Fixed by design of the suitability model.
const (
	temperatureWeight   = 0.40
	humidityWeight      = 0.25
	windWeight          = 0.20
	precipitationWeight = 0.15
)

// Outlook buckets. Descriptive only; never fed back into fusion weights.
const (
	OutlookExcellent = "excellent"
	OutlookGood      = "good"
	OutlookFair      = "fair"
	OutlookPoor      = "poor"
)

type toleranceBand struct {
	Min       float64
	Max       float64
	Tolerance float64
}

var (
	temperatureBand   = toleranceBand{Min: 18, Max: 27, Tolerance: 12} // °C
	humidityBand      = toleranceBand{Min: 50, Max: 70, Tolerance: 30} // %
	windBand          = toleranceBand{Min: 5, Max: 20, Tolerance: 25}  // km/h
	precipitationBand = toleranceBand{Min: 1, Max: 8, Tolerance: 15}   // mm
)

type Score struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Wind          float64 `json:"wind"`
	Precipitation float64 `json:"precipitation"`
	Overall       float64 `json:"overall"`
	Outlook       string  `json:"outlook"`
}

func (b toleranceBand) score(value float64) float64 {
	if value >= b.Min && value <= b.Max {
		return 100
	}
	var dist float64
	if value < b.Min {
		dist = b.Min - value
	} else {
		dist = value - b.Max
	}
	s := 100 * (1 - dist/b.Tolerance)
	if s < 0 {
		return 0
	}
	return s
}

// ScoreMeasurement converts a raw measurement into the 0-100 farming
// suitability score and its outlook bucket.
func ScoreMeasurement(m Measurement) Score {
	s := Score{
		Temperature:   temperatureBand.score(m.TemperatureC),
		Humidity:      humidityBand.score(m.HumidityPct),
		Wind:          windBand.score(m.WindSpeedKmh),
		Precipitation: precipitationBand.score(m.PrecipitationMm),
	}
	overall := s.Temperature*temperatureWeight +
		s.Humidity*humidityWeight +
		s.Wind*windWeight +
		s.Precipitation*precipitationWeight
	s.Overall = math.Round(overall*100) / 100
	s.Outlook = OutlookFor(s.Overall)
	return s
}

func OutlookFor(overall float64) string {
	switch {
	case overall >= 80:
		return OutlookExcellent
	case overall >= 60:
		return OutlookGood
	case overall >= 40:
		return OutlookFair
	default:
		return OutlookPoor
	}
}
