// Package reward implements the token reward model: a stage-based base
// reward scaled by quality, approval-rate and category multipliers. All
// functions are pure; callers supply every input.
package reward

import "math"

// stageRewards is the fixed payout schedule. Later stages pay less.
var stageRewards = map[string]int{
	"beta-v1": 500,
	"beta-v2": 425,
	"stage-1": 361,
	"stage-2": 307,
	"stage-3": 261,
	"stage-4": 222,
	"stage-5": 189,
	"stage-6": 161,
	"stage-7": 137,
	"stage-8": 116,
}

// incentivizedCategories earn the 2.5x category multiplier.
var incentivizedCategories = map[string]struct{}{
	"Development":     {},
	"DeFi":            {},
	"Smart Contracts": {},
	"Layer 2":         {},
	"Cross-Chain":     {},
	"Privacy":         {},
	"Consensus":       {},
	"Scalability":     {},
}

// DefaultQualityRating applies when no approving backend supplied a rating.
const DefaultQualityRating = 5.0

// NeutralApprovalRate applies to wallets with no processed history.
const NeutralApprovalRate = 50.0

// BaseReward looks up the payout for a stage. Unknown stages pay 0.
func BaseReward(stage string) int {
	return stageRewards[stage]
}

// QualityMultiplier maps a 1-10 rating onto [0.6, 1.5].
func QualityMultiplier(rating float64) float64 {
	return 0.6 + (clamp(rating, 1, 10)-1)*0.1
}

// ApprovalMultiplier maps an approval-rate percentage onto [1.0, 1.5]. The
// curve is U-shaped: minimal at exactly 50% and maximal at both 0% and 100%.
// That rewards very low approval rates as much as very high ones, which
// contradicts the product copy about higher-approval tiers, but it is the
// formula the payouts have always used, so it stays.
func ApprovalMultiplier(approvalRatePercent float64) float64 {
	normalized := (clamp(approvalRatePercent, 0, 100) - 50) / 50
	return 1 + normalized*normalized*0.5
}

// CategoryMultiplier is 2.5 for incentivized topics, 1.0 otherwise.
func CategoryMultiplier(category string) float64 {
	if _, ok := incentivizedCategories[category]; ok {
		return 2.5
	}
	return 1.0
}

// Tokens computes the final reward for an approved record.
func Tokens(stage string, avgQualityRating, approvalRatePercent float64, category string) int {
	reward := float64(BaseReward(stage)) *
		QualityMultiplier(avgQualityRating) *
		ApprovalMultiplier(approvalRatePercent) *
		CategoryMultiplier(category)
	return int(math.Floor(reward))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
