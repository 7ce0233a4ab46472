package explain

import (
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

// Disclaimer is appended to every result
const Disclaimer = "本结果基于当前可检索证据自动生成，不构成医疗、法律或投资建议。请以官方最新发布为准。"

const (
	genericSubject = "该内容"
	maxReasons     = 2
)

type labelCopy struct {
	text      string
	summary   string
	nextSteps []string
}

var trustedCopy = labelCopy{
	text:    "可信",
	summary: "当前检索到的权威信息与该说法大体一致。",
	nextSteps: []string{
		"优先查看证据卡中的官方来源发布时间，避免转发旧闻。",
		"如涉及个人决策（医疗/金融），请再咨询专业机构。",
	},
}

var untrustedCopy = labelCopy{
	text:    "不可信",
	summary: "当前检索到的权威信息与该说法存在明显冲突。",
	nextSteps: []string{
		"不要继续转发该内容，避免误导他人。",
		"将关键信息回到官方渠道二次核对。",
		"若涉及诈骗线索，保留截图并及时报警。",
	},
}

// insufficientCopy also covers unknown labels
var insufficientCopy = labelCopy{
	text:    "证据不足",
	summary: "当前尚未检索到足够权威证据，暂无法下结论。",
	nextSteps: []string{
		"补充更完整上下文（原视频标题/发布时间/来源）后重试。",
		"优先搜索政府官网、权威机构或官方媒体的同主题说明。",
	},
}

func copyFor(label model.Label) labelCopy {
	switch label {
	case model.LabelTrusted:
		return trustedCopy
	case model.LabelUntrusted:
		return untrustedCopy
	default:
		return insufficientCopy
	}
}

// Explain renders a verdict for the end user
func Explain(label model.Label, claims []model.Claim, reasons []string) model.Explanation {
	c := copyFor(label)

	subject := genericSubject
	if len(claims) > 0 && claims[0].Text != "" {
		subject = claims[0].Text
	}

	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("。")
	b.WriteString(c.summary)
	if len(reasons) > 0 {
		b.WriteString(" 主要依据：")
		b.WriteString(strings.Join(reasons[:min(len(reasons), maxReasons)], "；"))
		b.WriteString("。")
	}

	nextSteps := make([]string, len(c.nextSteps))
	copy(nextSteps, c.nextSteps)

	return model.Explanation{
		LabelText:        c.text,
		Summary:          c.summary,
		PlainExplanation: b.String(),
		NextSteps:        nextSteps,
		Disclaimer:       Disclaimer,
	}
}
