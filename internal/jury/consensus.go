package jury

import "heylon/internal/store/model"

// Tally applies the strict 2-of-3 rule: at least two directional votes agree
// or the jury as a whole returns WAIT. Absent or failed jurors have already
// been degraded to WAIT by the runner, so a short-handed panel can never
// produce a directional consensus from a single vote.
func Tally(votes []Vote) Vote {
	var buy, sell int
	for _, v := range votes {
		switch v {
		case VoteBuy:
			buy++
		case VoteSell:
			sell++
		}
	}
	switch {
	case buy >= 2:
		return VoteBuy
	case sell >= 2:
		return VoteSell
	default:
		return VoteWait
	}
}

// Grade maps a consensus at a stage to its executability and confidence
// labels. A WAIT consensus blocks regardless of stage.
func Grade(stage string, consensus Vote) (executability, confidence string) {
	if consensus == VoteWait {
		return ExecBlocked, ConfidenceLow
	}
	if stage == model.StagePreliminary {
		return ExecOptional, ConfidenceMedium
	}
	return ExecConfirmed, ConfidenceHigh
}

// ConfidenceScore converts a confidence label to the numeric weight stored on
// the decision row.
func ConfidenceScore(label string) float64 {
	switch label {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.7
	default:
		return 0.3
	}
}
