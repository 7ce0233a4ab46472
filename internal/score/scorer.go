package score

import (
	"math"

	"github.com/ppiankov/factlens/internal/model"
)

// Reasons attached to claim verdicts
const (
	ReasonRefuted      = "命中权威反驳证据"
	ReasonSupported    = "存在多条高等级支持证据"
	ReasonInsufficient = "证据不充分或存在冲突"
	ReasonNoClaims     = "未提取到可验证主张"
)

// Risk alerts, one per topic group present across the claims
const (
	AlertHealth       = "医疗健康信息仅供参考，出现症状请及时就医并遵循医生建议。"
	AlertMoney        = "涉及转账、验证码、投资收益等内容时，请先联系官方客服并保留证据。"
	AlertPolicy       = "政策法规类信息请以政府官网或官方公报为准。"
	AlertPublicSafety = "公共安全类消息建议核对当地应急管理部门通告。"
)

// Decision thresholds and score bounds
const (
	refuteThreshold  = 3
	supportThreshold = 4

	insufficientScore = 55
	noClaimScore      = 50
	maxReasons        = 3
)

// Scorer turns per-claim evidence into verdicts. It is stateless and deterministic.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Weights sums credibility weights of supporting and refuting evidence
func Weights(evidence []model.EvidenceItem) (support, refute int) {
	for _, item := range evidence {
		switch item.Stance {
		case model.StanceSupport:
			support += item.Credibility.Weight()
		case model.StanceRefute:
			refute += item.Credibility.Weight()
		}
	}
	return support, refute
}

// ClaimScore applies the decision rules in order: refutation first, then
// unopposed support, else insufficient.
func ClaimScore(support, refute int) (model.Label, int, string) {
	if refute >= refuteThreshold {
		return model.LabelUntrusted, max(5, 30-min(refute*2, 15)), ReasonRefuted
	}
	if support >= supportThreshold && refute == 0 {
		return model.LabelTrusted, min(95, 70+support*3), ReasonSupported
	}
	return model.LabelInsufficient, insufficientScore, ReasonInsufficient
}

// Score aggregates claim verdicts into the overall verdict
func (s *Scorer) Score(claims []model.Claim, evidenceByClaim map[string][]model.EvidenceItem) model.Verdict {
	if len(claims) == 0 {
		return model.Verdict{
			Label:         model.LabelInsufficient,
			Score:         noClaimScore,
			Reasons:       []string{ReasonNoClaims},
			RiskAlerts:    []string{},
			EvidenceGrade: model.GradeB,
			PerClaim:      []model.ClaimVerdict{},
		}
	}

	perClaim := make([]model.ClaimVerdict, 0, len(claims))
	hasUntrusted := false
	allTrusted := true
	total := 0

	for _, claim := range claims {
		support, refute := Weights(evidenceByClaim[claim.ID])
		label, score, reason := ClaimScore(support, refute)

		perClaim = append(perClaim, model.ClaimVerdict{
			ClaimID: claim.ID,
			Label:   label,
			Score:   score,
			Reason:  reason,
		})

		hasUntrusted = hasUntrusted || label == model.LabelUntrusted
		allTrusted = allTrusted && label == model.LabelTrusted
		total += score
	}

	label := model.LabelInsufficient
	switch {
	case hasUntrusted:
		label = model.LabelUntrusted
	case allTrusted:
		label = model.LabelTrusted
	}

	grade := model.GradeB
	if hasUntrusted || allTrusted {
		grade = model.GradeA
	}

	return model.Verdict{
		Label:         label,
		Score:         int(math.Floor(float64(total)/float64(len(perClaim)) + 0.5)),
		Reasons:       distinctReasons(perClaim),
		RiskAlerts:    RiskAlerts(claims),
		EvidenceGrade: grade,
		PerClaim:      perClaim,
	}
}

// RiskAlerts emits at most one advisory per topic group, in fixed order
func RiskAlerts(claims []model.Claim) []string {
	present := make(map[model.Topic]bool)
	for _, claim := range claims {
		present[claim.Topic] = true
	}

	alerts := []string{}
	if present[model.TopicHealth] {
		alerts = append(alerts, AlertHealth)
	}
	if present[model.TopicFraud] || present[model.TopicFinance] {
		alerts = append(alerts, AlertMoney)
	}
	if present[model.TopicPolicy] {
		alerts = append(alerts, AlertPolicy)
	}
	if present[model.TopicPublicSafety] {
		alerts = append(alerts, AlertPublicSafety)
	}
	return alerts
}

func distinctReasons(verdicts []model.ClaimVerdict) []string {
	seen := make(map[string]bool)
	var reasons []string
	for _, v := range verdicts {
		if seen[v.Reason] {
			continue
		}
		seen[v.Reason] = true
		reasons = append(reasons, v.Reason)
		if len(reasons) == maxReasons {
			break
		}
	}
	return reasons
}
