package jury

import (
	"fmt"
	"testing"

	"heylon/internal/store/model"

	"github.com/stretchr/testify/assert"
)

func TestTallyRequiresTwoMatchingDirectionalVotes(t *testing.T) {
	options := []Vote{VoteBuy, VoteSell, VoteWait}
	for _, a := range options {
		for _, b := range options {
			for _, c := range options {
				votes := []Vote{a, b, c}
				var buy, sell int
				for _, v := range votes {
					if v == VoteBuy {
						buy++
					}
					if v == VoteSell {
						sell++
					}
				}
				want := VoteWait
				if buy >= 2 {
					want = VoteBuy
				} else if sell >= 2 {
					want = VoteSell
				}
				name := fmt.Sprintf("%s_%s_%s", a, b, c)
				t.Run(name, func(t *testing.T) {
					assert.Equal(t, want, Tally(votes))
				})
			}
		}
	}
}

func TestTallySplitPanelWaits(t *testing.T) {
	assert.Equal(t, VoteWait, Tally([]Vote{VoteBuy, VoteSell, VoteWait}))
	assert.Equal(t, VoteWait, Tally([]Vote{VoteBuy, VoteWait, VoteSell}))
}

func TestTallyShortPanelNeverDirectional(t *testing.T) {
	assert.Equal(t, VoteWait, Tally([]Vote{VoteBuy}))
	assert.Equal(t, VoteWait, Tally([]Vote{VoteSell, VoteWait}))
	assert.Equal(t, VoteWait, Tally(nil))
}

func TestGrade(t *testing.T) {
	cases := []struct {
		stage     string
		consensus Vote
		wantExec  string
		wantConf  string
	}{
		{model.StagePreliminary, VoteBuy, ExecOptional, ConfidenceMedium},
		{model.StagePreliminary, VoteSell, ExecOptional, ConfidenceMedium},
		{model.StageFinal, VoteBuy, ExecConfirmed, ConfidenceHigh},
		{model.StageFinal, VoteSell, ExecConfirmed, ConfidenceHigh},
		{model.StagePreliminary, VoteWait, ExecBlocked, ConfidenceLow},
		{model.StageFinal, VoteWait, ExecBlocked, ConfidenceLow},
	}
	for _, tc := range cases {
		exec, conf := Grade(tc.stage, tc.consensus)
		assert.Equal(t, tc.wantExec, exec, "stage=%s consensus=%s", tc.stage, tc.consensus)
		assert.Equal(t, tc.wantConf, conf, "stage=%s consensus=%s", tc.stage, tc.consensus)
	}
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 0.9, ConfidenceScore(ConfidenceHigh))
	assert.Equal(t, 0.7, ConfidenceScore(ConfidenceMedium))
	assert.Equal(t, 0.3, ConfidenceScore(ConfidenceLow))
	assert.Equal(t, 0.3, ConfidenceScore("UNKNOWN"))
}
