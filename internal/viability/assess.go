package viability

import "fmt"

// Quality grades for the individual components.
const (
	ZoneStrong  = "STRONG"
	ZoneAverage = "AVERAGE"
	ZoneWeak    = "WEAK"

	LocationStrong  = "STRONG"
	LocationNeutral = "NEUTRAL"
	LocationPoor    = "POOR"

	TapClean    = "CLEAN"
	TapDegraded = "DEGRADED"
	TapInvalid  = "INVALID"

	VetoClear   = "CLEAR"
	VetoCaution = "CAUTION"
	VetoVeto    = "VETO"
)

const (
	LabelHigh   = "HIGH"
	LabelMedium = "MEDIUM"
	LabelLow    = "LOW"
)

// Input carries the signal metadata and context values the assessment reads.
type Input struct {
	VolumeScore float64
	// NewsScore is the context snapshot's news sentiment; zero when no
	// snapshot is live.
	NewsScore  float64
	HasContext bool
}

// Components break the score down for the UI and the supporting-factor log.
type Components struct {
	ZoneQuality       string
	LocationQuality   string
	TapQuality        string
	EnvironmentalVeto string
}

// Assessment is the scored result of a zone tap.
type Assessment struct {
	Score      float64
	Label      string
	Components Components
	Reasons    []string
}

// Assess scores a zone tap. Deterministic and side-effect free; the only
// inputs are the values in Input.
//
// Location quality is a fixed NEUTRAL placeholder reserved for HTF-context
// scoring, and tap quality is CLEAN until origin-violation detection exists.
func Assess(in Input) Assessment {
	reasons := make([]string, 0, 4)

	volumeScore := in.VolumeScore
	if volumeScore == 0 {
		volumeScore = 1.0
	}
	zoneQuality := ZoneAverage
	if volumeScore > 2.0 {
		zoneQuality = ZoneStrong
	}
	if volumeScore < 0.8 {
		zoneQuality = ZoneWeak
	}
	reasons = append(reasons, fmt.Sprintf("Zone Quality: %s (Vol Score: %g)", zoneQuality, volumeScore))

	locationQuality := LocationNeutral
	reasons = append(reasons, fmt.Sprintf("Location Quality: %s", locationQuality))

	tapQuality := TapClean
	reasons = append(reasons, fmt.Sprintf("Tap Quality: %s", tapQuality))

	veto := VetoClear
	if in.HasContext && in.NewsScore < -0.5 {
		veto = VetoCaution
		reasons = append(reasons, "Negative News Sentiment")
	}

	score := 0.5
	if zoneQuality == ZoneStrong {
		score += 0.2
	}
	if zoneQuality == ZoneWeak {
		score -= 0.1
	}
	if tapQuality == TapClean {
		score += 0.1
	}
	score = clamp01(score)

	label := LabelMedium
	if score >= 0.7 {
		label = LabelHigh
	}
	if score < 0.4 {
		label = LabelLow
	}

	return Assessment{
		Score: score,
		Label: label,
		Components: Components{
			ZoneQuality:       zoneQuality,
			LocationQuality:   locationQuality,
			TapQuality:        tapQuality,
			EnvironmentalVeto: veto,
		},
		Reasons: reasons,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
