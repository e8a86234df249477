package weather

import "testing"

func TestScoreMeasurement_OptimalConditions(t *testing.T) {
	m := Measurement{
		TemperatureC:    22,
		HumidityPct:     60,
		WindSpeedKmh:    10,
		PrecipitationMm: 4,
	}
	s := ScoreMeasurement(m)
	if s.Overall != 100 {
		t.Fatalf("overall=%v want=100", s.Overall)
	}
	if s.Outlook != OutlookExcellent {
		t.Fatalf("outlook=%s want=%s", s.Outlook, OutlookExcellent)
	}
}

func TestToleranceBand_LinearDecay(t *testing.T) {
	// 6°C below the 18°C edge with tolerance 12 -> 100*(1-6/12) = 50.
	if got := temperatureBand.score(12); got != 50 {
		t.Fatalf("temperature score=%v want=50", got)
	}
	// Beyond the tolerance distance the score clamps to zero.
	if got := temperatureBand.score(45); got != 0 {
		t.Fatalf("temperature score=%v want=0", got)
	}
	if got := humidityBand.score(100); got != 0 {
		t.Fatalf("humidity score=%v want=0", got)
	}
	// Inside the band is always a full score.
	if got := windBand.score(5); got != 100 {
		t.Fatalf("wind score at lower edge=%v want=100", got)
	}
	if got := windBand.score(20); got != 100 {
		t.Fatalf("wind score at upper edge=%v want=100", got)
	}
}

func TestScoreMeasurement_SubScoreWeights(t *testing.T) {
	// Temperature 50, everything else optimal:
	// 50*0.40 + 100*0.25 + 100*0.20 + 100*0.15 = 80.
	m := Measurement{
		TemperatureC:    12,
		HumidityPct:     60,
		WindSpeedKmh:    10,
		PrecipitationMm: 4,
	}
	s := ScoreMeasurement(m)
	if s.Temperature != 50 {
		t.Fatalf("temperature sub-score=%v want=50", s.Temperature)
	}
	if s.Overall != 80 {
		t.Fatalf("overall=%v want=80", s.Overall)
	}
	if s.Outlook != OutlookExcellent {
		t.Fatalf("outlook=%s want=%s", s.Outlook, OutlookExcellent)
	}
}

func TestOutlookFor_Buckets(t *testing.T) {
	cases := []struct {
		overall float64
		want    string
	}{
		{100, OutlookExcellent},
		{80, OutlookExcellent},
		{79.99, OutlookGood},
		{60, OutlookGood},
		{59.99, OutlookFair},
		{40, OutlookFair},
		{39.99, OutlookPoor},
		{0, OutlookPoor},
	}
	for _, c := range cases {
		if got := OutlookFor(c.overall); got != c.want {
			t.Fatalf("OutlookFor(%v)=%s want=%s", c.overall, got, c.want)
		}
	}
}

func TestScoreMeasurement_HostileConditions(t *testing.T) {
	m := Measurement{
		TemperatureC:    -20,
		HumidityPct:     100,
		WindSpeedKmh:    90,
		PrecipitationMm: 60,
	}
	s := ScoreMeasurement(m)
	if s.Overall != 0 {
		t.Fatalf("overall=%v want=0", s.Overall)
	}
	if s.Outlook != OutlookPoor {
		t.Fatalf("outlook=%s want=%s", s.Outlook, OutlookPoor)
	}
}
