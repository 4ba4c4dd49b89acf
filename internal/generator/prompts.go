package generator

import (
	"fmt"
	"strings"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// RoleProfile holds the per-role generation settings: the system prompt
// template and the structured-data kind hinted to the model.
type RoleProfile struct {
	SystemPrompt string
	SchemaHint   string
}

// roleProfiles maps every known role to its generation profile. Pack
// validation closes allowed roles over model.KnownRoles, so a lookup
// here can only miss if the two tables drift; TestRoleProfilesExhaustive
// guards that.
var roleProfiles = map[model.Role]RoleProfile{
	model.RolePillar: {
		SystemPrompt: "You are an expert content strategist. Write a comprehensive, authoritative hub article that covers the topic broadly and references its subtopics.",
		SchemaHint:   "Article",
	},
	model.RoleSupport: {
		SystemPrompt: "You are an expert writer. Write an in-depth supporting article that explores one facet of a broader topic.",
		SchemaHint:   "Article",
	},
	model.RoleGeneral: {
		SystemPrompt: "You are a knowledgeable blogger. Write an informative general-interest article on the given subject.",
		SchemaHint:   "Article",
	},
	model.RoleCommercial: {
		SystemPrompt: "You are a conversion copywriter. Write a buyer-focused article that helps readers evaluate and choose, with clear recommendations.",
		SchemaHint:   "Product",
	},
	model.RoleListicle: {
		SystemPrompt: "You are a content writer. Write a list-style article with numbered sections, each covering one item with a short verdict.",
		SchemaHint:   "ItemList",
	},
}

// ProfileFor returns the generation profile for a role.
func ProfileFor(role model.Role) (RoleProfile, bool) {
	p, ok := roleProfiles[role]
	return p, ok
}

// BuildArticlePrompt renders the user prompt for a single article.
func BuildArticlePrompt(req ArticleRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write an article titled %q.\n", req.Title)
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&sb, "Target keywords: %s.\n", strings.Join(req.Keywords, ", "))
	}
	if req.PillarName != "" {
		fmt.Fprintf(&sb, "The article belongs to the topic hub %q.\n", req.PillarName)
	}
	if req.ClusterName != "" {
		fmt.Fprintf(&sb, "It sits in the %q cluster.\n", req.ClusterName)
	}
	if req.MasterPrompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n", req.MasterPrompt)
	}
	if len(req.Links) > 0 {
		sb.WriteString("Weave the following link anchors naturally into the body text:\n")
		for _, l := range req.Links {
			fmt.Fprintf(&sb, "- [internal:%d] %s\n", l.TargetID, l.Anchor)
		}
	}
	return sb.String()
}

// BuildRewritePrompt renders the user prompt for rewriting an external item.
func BuildRewritePrompt(req RewriteRequest) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the following article in your own words. Keep the facts, change the phrasing and structure.\n")
	if req.MasterPrompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n", req.MasterPrompt)
	}
	if len(req.Links) > 0 {
		sb.WriteString("Weave the following link anchors naturally into the body text:\n")
		for _, l := range req.Links {
			fmt.Fprintf(&sb, "- [internal:%d] %s\n", l.TargetID, l.Anchor)
		}
	}
	fmt.Fprintf(&sb, "\nTitle: %s\n\n%s\n", req.Title, req.Content)
	return sb.String()
}

const clusterPromptFormat = `Group the topic %q into between 3 and 8 semantic clusters suitable for a topical-authority content plan.
Seed keywords: %s.
Respond with JSON only, in the form:
{"clusters": [{"name": "...", "description": "...", "weight": 1.0}]}
Weight is each cluster's relative share of articles.`

// BuildClusterPrompt renders the planning prompt for a topic.
func BuildClusterPrompt(topic string, keywords []string) string {
	return fmt.Sprintf(clusterPromptFormat, topic, strings.Join(keywords, ", "))
}
