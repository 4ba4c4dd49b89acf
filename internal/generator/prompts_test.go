package generator

import (
	"strings"
	"testing"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

func TestRoleProfilesExhaustive(t *testing.T) {
	for _, role := range model.KnownRoles() {
		if _, ok := ProfileFor(role); !ok {
			t.Errorf("role %q has no generation profile", role)
		}
	}
	for role := range roleProfiles {
		if !model.KnownRole(role) {
			t.Errorf("profile exists for unknown role %q", role)
		}
	}
}

func TestBuildArticlePrompt(t *testing.T) {
	prompt := BuildArticlePrompt(ArticleRequest{
		Title:        "Crate Training 101",
		Keywords:     []string{"crate training", "dog training"},
		Role:         model.RoleSupport,
		PillarName:   "dog training",
		ClusterName:  "Puppy Basics",
		MasterPrompt: "Write for first-time owners.",
		Links: []model.InternalLink{
			{TargetID: 7, Anchor: "our guide to dog training"},
		},
	})

	for _, want := range []string{
		`"Crate Training 101"`,
		"crate training, dog training",
		`"dog training"`,
		`"Puppy Basics"`,
		"Write for first-time owners.",
		"[internal:7] our guide to dog training",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildArticlePromptOmitsEmptySections(t *testing.T) {
	prompt := BuildArticlePrompt(ArticleRequest{Title: "Solo"})
	for _, absent := range []string{"Target keywords", "cluster", "Additional instructions", "link anchors"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("prompt should not mention %q:\n%s", absent, prompt)
		}
	}
}

func TestBuildRewritePrompt(t *testing.T) {
	prompt := BuildRewritePrompt(RewriteRequest{
		Title:        "Original Headline",
		Content:      "Original body.",
		MasterPrompt: "Keep it short.",
	})
	for _, want := range []string{"Rewrite", "Original Headline", "Original body.", "Keep it short."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
