package profile

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"jobbot/internal/model"
)

const testHardRejectAt = -2.0

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "lowercases and drops punctuation",
			text: "Senior Python Developer (Remote)!",
			want: []string{"senior", "python", "developer", "remote"},
		},
		{
			name: "drops tokens of length two or less",
			text: "go to ML and AI labs",
			want: []string{"and", "labs"},
		},
		{
			name: "keeps digits",
			text: "sql2019 server",
			want: []string{"sql2019", "server"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreHardReject(t *testing.T) {
	// A negative keyword below the threshold vetoes the job outright,
	// no matter what else matches.
	job := model.JobPosting{
		Title:       "Sales Executive",
		Description: "We need python and sales experience",
	}
	keywords := []model.Keyword{
		{Text: "python", Weight: 3.0, Source: model.SourceAuto},
		{Text: "sales", Weight: -2.5, IsNegative: true, Source: model.SourceAuto},
	}

	score, matched := Score(job, keywords, testHardRejectAt)
	if score != HardRejectScore {
		t.Errorf("score = %v, want %v", score, HardRejectScore)
	}
	if diff := cmp.Diff([]string{"sales"}, matched); diff != "" {
		t.Errorf("matched mismatch (-want +got):\n%s", diff)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		job         model.JobPosting
		keywords    []model.Keyword
		wantScore   float64
		wantMatched []string
	}{
		{
			name: "no keywords matches nothing",
			job:  model.JobPosting{Title: "Data Engineer"},
			keywords: []model.Keyword{
				{Text: "golang", Weight: 2.0},
			},
			wantScore:   0,
			wantMatched: nil,
		},
		{
			name: "positive match adds weight plus title bonus",
			job:  model.JobPosting{Title: "Python Developer", Description: "building services"},
			keywords: []model.Keyword{
				{Text: "python", Weight: 2.0},
			},
			wantScore:   2.5,
			wantMatched: []string{"python"},
		},
		{
			name: "positive contribution capped at five",
			job:  model.JobPosting{Description: "python everywhere"},
			keywords: []model.Keyword{
				{Text: "python", Weight: 9.0},
			},
			wantScore:   5.0,
			wantMatched: []string{"python"},
		},
		{
			name: "soft negative subtracts absolute weight",
			job:  model.JobPosting{Title: "Python Developer", Description: "some telemarketing duties"},
			keywords: []model.Keyword{
				{Text: "python", Weight: 3.0},
				{Text: "telemarketing", Weight: -1.5, IsNegative: true},
			},
			// 3.0 - 1.5 + 0.5 title bonus
			wantScore:   2.0,
			wantMatched: []string{"python", "telemarketing"},
		},
		{
			name: "only soft negatives get extra penalty",
			job:  model.JobPosting{Description: "cold calling telemarketing role"},
			keywords: []model.Keyword{
				{Text: "telemarketing", Weight: -1.5, IsNegative: true},
			},
			// -1.5 then -5.0 penalty, not floored
			wantScore:   -6.5,
			wantMatched: []string{"telemarketing"},
		},
		{
			name: "phrase keywords match as whole words in the blob",
			job:  model.JobPosting{Title: "Engineer", Description: "experience with machine learning pipelines"},
			keywords: []model.Keyword{
				{Text: "machine learning", Weight: 2.0},
			},
			wantScore:   2.0,
			wantMatched: []string{"machine learning"},
		},
		{
			name: "phrase does not match inside other words",
			job:  model.JobPosting{Description: "remachine learnings"},
			keywords: []model.Keyword{
				{Text: "machine learning", Weight: 2.0},
			},
			wantScore:   0,
			wantMatched: nil,
		},
		{
			name: "skill bonus for verbatim skill",
			job: model.JobPosting{
				Title:       "Backend Engineer",
				Description: "python services",
				Skills:      []string{"Python", "Docker"},
			},
			keywords: []model.Keyword{
				{Text: "python", Weight: 1.0},
			},
			// 1.0 + 0.8 skill bonus
			wantScore:   1.8,
			wantMatched: []string{"python"},
		},
		{
			name: "category bonus not doubled with skill bonus",
			job: model.JobPosting{
				Description: "python role",
				Skills:      []string{"python"},
				Categories:  []string{"python"},
			},
			keywords: []model.Keyword{
				{Text: "python", Weight: 1.0},
			},
			// skill bonus only, category skipped as already counted
			wantScore:   1.8,
			wantMatched: []string{"python"},
		},
		{
			name: "category bonus alone",
			job: model.JobPosting{
				Description: "engineering role",
				Categories:  []string{"Engineering"},
			},
			keywords: []model.Keyword{
				{Text: "engineering", Weight: 1.0},
			},
			// 1.0 + 0.6 category bonus
			wantScore:   1.6,
			wantMatched: []string{"engineering"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, matched := Score(tt.job, tt.keywords, testHardRejectAt)
			if math.Abs(score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if diff := cmp.Diff(tt.wantMatched, matched); diff != "" {
				t.Errorf("matched mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreNegativeNotFloored(t *testing.T) {
	// Two soft negatives with different totals stay comparably ordered
	// instead of collapsing to a single rejected bucket.
	kwLight := []model.Keyword{{Text: "telemarketing", Weight: -0.5, IsNegative: true}}
	kwHeavy := []model.Keyword{{Text: "telemarketing", Weight: -1.9, IsNegative: true}}
	job := model.JobPosting{Description: "telemarketing position"}

	light, _ := Score(job, kwLight, testHardRejectAt)
	heavy, _ := Score(job, kwHeavy, testHardRejectAt)
	if light <= heavy {
		t.Errorf("expected lighter penalty to score higher: light=%v heavy=%v", light, heavy)
	}
}

func TestContainsWholeWord(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"machine learning engineer", "machine learning", true},
		{"remachine learning", "machine learning", false},
		{"machine learnings", "machine learning", false},
		{"data science, machine learning.", "machine learning", true},
		{"machine learning", "machine learning", true},
		{"", "machine learning", false},
	}
	for _, tt := range tests {
		if got := containsWholeWord(tt.s, tt.sub); got != tt.want {
			t.Errorf("containsWholeWord(%q, %q) = %v, want %v", tt.s, tt.sub, got, tt.want)
		}
	}
}
