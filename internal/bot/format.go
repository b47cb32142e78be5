package bot

import (
	"fmt"
	"strings"

	"jobbot/internal/model"
)

const descriptionPreview = 300

// FormatJobCard formats a job posting as a Telegram message. A positive
// score adds a short match explanation.
func FormatJobCard(job model.JobPosting, score float64, matched []string) string {
	var b strings.Builder
	b.WriteString(job.Title)
	if job.Company != "" {
		fmt.Fprintf(&b, "\n%s", job.Company)
	}
	if job.Location != "" {
		fmt.Fprintf(&b, "\n%s", job.Location)
	}

	switch {
	case job.SalaryMin > 0 && job.SalaryMax > 0:
		fmt.Fprintf(&b, "\n$%.0f - $%.0f", job.SalaryMin, job.SalaryMax)
	case job.SalaryMin > 0:
		fmt.Fprintf(&b, "\nFrom $%.0f", job.SalaryMin)
	}

	if desc := previewDescription(job.Description); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(desc)
	}

	if len(job.Skills) > 0 {
		limit := len(job.Skills)
		if limit > 5 {
			limit = 5
		}
		fmt.Fprintf(&b, "\n\nSkills: %s", strings.Join(job.Skills[:limit], ", "))
	}

	if score > 0 {
		fmt.Fprintf(&b, "\n\nMatch score: %.1f", score)
		if len(matched) > 0 {
			limit := len(matched)
			if limit > 3 {
				limit = 3
			}
			fmt.Fprintf(&b, " • Matched: %s", strings.Join(matched[:limit], ", "))
		}
	}

	return b.String()
}

func previewDescription(desc string) string {
	desc = strings.TrimSpace(strings.ReplaceAll(desc, "\n", " "))
	if len(desc) > descriptionPreview {
		return desc[:descriptionPreview] + "..."
	}
	return desc
}

// FormatKeywordProfile formats a user's keyword set grouped by polarity.
func FormatKeywordProfile(keywords []model.Keyword, topK int) string {
	if len(keywords) == 0 {
		return "You don't have any keywords yet. Like or dislike some jobs to build your profile, or pin one with /addkeyword."
	}

	var positive, negative []model.Keyword
	for _, kw := range keywords {
		if kw.IsNegative {
			negative = append(negative, kw)
		} else {
			positive = append(positive, kw)
		}
	}
	if len(positive) > topK {
		positive = positive[:topK]
	}
	if len(negative) > 5 {
		negative = negative[:5]
	}

	var b strings.Builder
	b.WriteString("Your keyword profile\n")

	if len(positive) > 0 {
		b.WriteString("\nPositive:\n")
		for _, kw := range positive {
			marker := ""
			if kw.Source == model.SourceManual {
				marker = " [pinned]"
			}
			fmt.Fprintf(&b, "  %s (%.2f)%s\n", kw.Text, kw.Weight, marker)
		}
	}
	if len(negative) > 0 {
		b.WriteString("\nNegative:\n")
		for _, kw := range negative {
			fmt.Fprintf(&b, "  %s (%.2f)\n", kw.Text, kw.Weight)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
