// Package insight builds prompts from aggregated summaries and requests
// completions from the external language-model API.
//
// Prompt construction is deterministic and pure: the same aggregates always
// yield the same text, so prompts are unit-testable without the network.
package insight

import (
	"fmt"
	"strings"

	"qualitycost/internal/core"
)

// BuildSuggestionPrompt embeds the four category sums into the improvement
// suggestion prompt.
func BuildSuggestionPrompt(s core.CategorySummary) string {
	summary := fmt.Sprintf(
		"Prevention: ₹%s, Appraisal: ₹%s, Internal Failure: ₹%s, External Failure: ₹%s.",
		s[core.Prevention].Grouped(),
		s[core.Appraisal].Grouped(),
		s[core.InternalFailure].Grouped(),
		s[core.ExternalFailure].Grouped(),
	)

	return fmt.Sprintf(`You are a professional Total Quality Management (TQM) consultant reviewing this company's cost data:
%s

Based on this information, write 3-4 short, data-driven recommendations to help management
reduce total quality cost next month. Your response should:
- Be concise (under 120 words total)
- Sound professional and personalized, not generic
- Reflect TQM principles like continuous improvement, prevention focus, and customer satisfaction
- Mention specific cost trends if relevant (e.g., if prevention cost is low, recommend increasing it)

Format the response in clean bullet points with short reasoning for each suggestion.`, summary)
}

// BuildReportPrompt embeds the selected month's total, the KPI snapshot and
// the recent trend tail into the monthly report prompt.
func BuildReportPrompt(month core.Month, monthTotal core.Money, kpis core.KPISnapshot, trend core.MonthlyTrend) string {
	var tail strings.Builder
	for _, p := range trend {
		fmt.Fprintf(&tail, "%s: ₹%s\n", p.Month, p.Total.Grouped())
	}

	summary := fmt.Sprintf(`Report for %s:
Total Quality Cost = ₹%s

Recent %d-month trend:
%s
COGQ = ₹%s, COPQ = ₹%s, Total = ₹%s.`,
		month, monthTotal.Grouped(),
		len(trend), tail.String(),
		kpis.COGQ.Grouped(), kpis.COPQ.Grouped(), kpis.Total.Grouped(),
	)

	return fmt.Sprintf(`You are a Quality Manager preparing a report for %s.
Based on this data:
%s

Write a short (around 150 words) report highlighting:
- This month's quality cost performance
- Trend compared to previous months
- Recommendations for improvement next month
Keep it professional, concise, and insights-focused.`, month, summary)
}
