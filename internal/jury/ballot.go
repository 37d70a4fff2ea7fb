package jury

import (
	"fmt"
	"strings"

	"heylon/internal/store/model"
)

// Vote is a single juror's verdict. Anything a juror cannot deliver cleanly
// (no credential, timeout, parse failure) degrades to WAIT, never to a
// directional call.
type Vote string

const (
	VoteBuy  Vote = "BUY"
	VoteSell Vote = "SELL"
	VoteWait Vote = "WAIT"
)

// Executability grades of a consensus at a given stage.
const (
	ExecConfirmed = "CONFIRMED"
	ExecOptional  = "OPTIONAL"
	ExecBlocked   = "BLOCKED"
)

const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Task is the unit of work the engine enqueues when a structural confirmation
// fires. Version pins the decision-state generation at enqueue time so a
// verdict landing after a reset commits nothing.
type Task struct {
	Symbol    string
	Direction string // BULLISH | BEARISH
	Stage     string // PRELIMINARY | FINAL
	Snapshot  model.ContextSnapshot
	Supports  []string
	Blockers  []string
	Version   int64
	TraceID   string
}

// Ballot is the identical structured context every juror receives.
type Ballot struct {
	Symbol    string
	Direction string
	Stage     string
	Supports  []string
	Blockers  []string
	MacroRisk string
}

func (t Task) Ballot() Ballot {
	risk := strings.TrimSpace(t.Snapshot.MacroRisk)
	if risk == "" {
		risk = "NONE"
	}
	return Ballot{
		Symbol:    t.Symbol,
		Direction: t.Direction,
		Stage:     t.Stage,
		Supports:  t.Supports,
		Blockers:  t.Blockers,
		MacroRisk: risk,
	}
}

// Prompt renders the fixed rule preamble plus the signal context. The rules
// are the constitution every juror judges under: intraday structure only, an
// A++ sequence confirms, high macro risk forces WAIT.
func (b Ballot) Prompt() string {
	affirm := "BUY"
	if b.Direction == model.DirectionBearish {
		affirm = "SELL"
	}
	var sb strings.Builder
	sb.WriteString("You are the HEYLON Intraday Jury. Validate trading signals for scalping (1H/4H structure).\n\n")
	sb.WriteString("CONSTITUTION:\n")
	sb.WriteString("1. IGNORE Daily/Weekly trends. Focus ONLY on Intraday Structure.\n")
	sb.WriteString("2. A++ PRIORITY: Strong Impulse Zone Tap -> MSS = CONFIRMED.\n")
	sb.WriteString("3. FORCE WAIT if Macro/News Risk is HIGH.\n\n")
	sb.WriteString("SIGNAL CONTEXT:\n")
	fmt.Fprintf(&sb, "Symbol: %s\n", b.Symbol)
	fmt.Fprintf(&sb, "Direction: %s\n", b.Direction)
	fmt.Fprintf(&sb, "Stage: %s\n", b.Stage)
	fmt.Fprintf(&sb, "Structure Supports: %s\n", renderList(b.Supports))
	fmt.Fprintf(&sb, "Risk Blockers: %s\n", renderList(b.Blockers))
	fmt.Fprintf(&sb, "Macro Impact: %s\n\n", b.MacroRisk)
	sb.WriteString("TASK:\n")
	sb.WriteString("Analyze the context. If High Risk Blockers exist, Verdict MUST be WAIT.\n")
	fmt.Fprintf(&sb, "If Structure Supports include \"A_PLUS_PLUS_SEQUENCE\", Verdict SHOULD be %s.\n\n", affirm)
	sb.WriteString(`OUTPUT JSON ONLY: { "verdict": "BUY"|"SELL"|"WAIT", "confidence": "HIGH"|"LOW", "explanation": "Short reason" }`)
	return sb.String()
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, ", ") + "]"
}
