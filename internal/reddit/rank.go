package reddit

import (
	"sort"

	"github.com/abelbrown/reactions/internal/model"
)

// exactMatchBonus lifts url_exact posts above everything else.
const exactMatchBonus = 1000

// minComments is the noise floor for every returned post.
const minComments = 2

// baseEngagement weights discussion volume over raw upvotes.
func baseEngagement(c model.RankedCandidate) int {
	return c.Engagement.Score + 2*c.Engagement.NumComments
}

// Rank scores and sorts candidates in place and returns them.
//
// Exact URL matches get a bonus of 1000. If a non-exact post is popular
// enough to reach that, the bonus grows just enough that every url_exact
// score stays strictly above every other score. Ties fall back to match
// type priority, then input order.
func Rank(cands []model.RankedCandidate) []model.RankedCandidate {
	maxOther, minExact := 0, 0
	haveOther, haveExact := false, false
	for _, c := range cands {
		b := baseEngagement(c)
		if c.MatchType == model.MatchURLExact {
			if !haveExact || b < minExact {
				minExact = b
			}
			haveExact = true
		} else {
			if !haveOther || b > maxOther {
				maxOther = b
			}
			haveOther = true
		}
	}

	bonus := exactMatchBonus
	if haveExact && haveOther {
		if need := maxOther - minExact + 1; need > bonus {
			bonus = need
		}
	}

	for i := range cands {
		score := baseEngagement(cands[i])
		if cands[i].MatchType == model.MatchURLExact {
			score += bonus
		}
		cands[i].EngagementScore = score
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].EngagementScore != cands[j].EngagementScore {
			return cands[i].EngagementScore > cands[j].EngagementScore
		}
		return cands[i].MatchType.Priority() < cands[j].MatchType.Priority()
	})
	return cands
}
