package jury

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Juror is one independent reasoning provider. Vote must honor ctx deadlines;
// the runner wraps every call in a bounded timeout.
type Juror interface {
	ID() string
	Enabled() bool
	Vote(ctx context.Context, b Ballot) (Vote, error)
}

const systemPreamble = "You are a precise trading engine JSON outputter."

// parseVerdict extracts the verdict field from a juror's raw response text,
// tolerating markdown fences around the JSON.
func parseVerdict(content string) (Vote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return VoteWait, fmt.Errorf("empty response")
	}
	content = stripFences(content)
	verdict := gjson.Get(content, "verdict").String()
	switch strings.ToUpper(strings.TrimSpace(verdict)) {
	case "BUY":
		return VoteBuy, nil
	case "SELL":
		return VoteSell, nil
	case "WAIT":
		return VoteWait, nil
	default:
		return VoteWait, fmt.Errorf("unrecognized verdict %q", verdict)
	}
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// maskKey hides all but the last 4 characters of a credential for logs.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
