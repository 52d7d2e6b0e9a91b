package audit

import (
	"fmt"
	"strings"
)

// findingRule is one heuristic: a pure function of the evaluation context
// returning zero or more findings.
type findingRule func(ev *Evaluation) []Finding

// findingRules is the fixed rule table. Rules run in this order and their
// output is concatenated, so the finding list is deterministic for
// identical input. The unreachable rule is handled separately in Evaluate
// because it short-circuits everything else.
var findingRules = []findingRule{
	ruleSlowResponse,
	ruleMissingMetaDescription,
	ruleMissingTitle,
	ruleNoH1,
	ruleImagesWithoutAlt,
	ruleBrokenLinks,
	ruleRobotsAbsent,
}

// Evaluate produces the ordered finding list for one audit run.
// A failed fetch yields exactly one critical availability finding and
// suppresses every parser-derived rule.
func Evaluate(ev *Evaluation) []Finding {
	var findings []Finding

	if ev.Fetch.Failed {
		findings = append(findings, Finding{
			Category: CategoryAvailability,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("The target URL could not be fetched (%s).",
				ev.Fetch.ErrorKind),
			Recommendation: "Verify hosting availability and DNS, and ensure the server answers requests for the page.",
		})
		return numbered(findings)
	}

	for _, rule := range findingRules {
		findings = append(findings, rule(ev)...)
	}

	return numbered(findings)
}

// numbered assigns the insertion-order index to each finding
func numbered(findings []Finding) []Finding {
	for i := range findings {
		findings[i].OrderIndex = i
	}
	return findings
}

func ruleSlowResponse(ev *Evaluation) []Finding {
	if ev.Fetch.Elapsed <= ev.SlowThreshold {
		return nil
	}
	return []Finding{{
		Category: CategoryPerformance,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("Measured response time %dms exceeds the %dms threshold.",
			ev.Fetch.Elapsed.Milliseconds(), ev.SlowThreshold.Milliseconds()),
		Recommendation: "Optimize server-side rendering, add caching, and compress assets to improve response time.",
	}}
}

func ruleMissingMetaDescription(ev *Evaluation) []Finding {
	if strings.TrimSpace(ev.Page.MetaDescription) != "" {
		return nil
	}
	return []Finding{{
		Category:       CategorySEO,
		Severity:       SeverityWarning,
		Message:        "The page does not define a meta description tag.",
		Recommendation: "Add a concise meta description between 50 and 160 characters to improve search result visibility.",
	}}
}

func ruleMissingTitle(ev *Evaluation) []Finding {
	if strings.TrimSpace(ev.Page.Title) != "" {
		return nil
	}
	return []Finding{{
		Category:       CategorySEO,
		Severity:       SeverityCritical,
		Message:        "The page has no <title> element or its content is empty.",
		Recommendation: "Provide a unique, descriptive title so search engines and browser tabs can identify the page.",
	}}
}

func ruleNoH1(ev *Evaluation) []Finding {
	if ev.Page.Headings["h1"] > 0 {
		return nil
	}
	return []Finding{{
		Category:       CategoryStructure,
		Severity:       SeverityWarning,
		Message:        "The page markup is missing a primary <h1> heading.",
		Recommendation: "Provide a unique H1 heading describing the page contents.",
	}}
}

// ruleImagesWithoutAlt emits one warning per offending image so the score
// deduction scales with the number of defects.
func ruleImagesWithoutAlt(ev *Evaluation) []Finding {
	var findings []Finding
	for i, img := range ev.Page.Images {
		if img.HasAlt {
			continue
		}
		label := img.Source
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		findings = append(findings, Finding{
			Category:       CategoryAccessibility,
			Severity:       SeverityWarning,
			Message:        fmt.Sprintf("Image %s is missing alternative text.", label),
			Recommendation: "Add a meaningful alt attribute so assistive technology can describe the image.",
		})
	}
	return findings
}

func ruleBrokenLinks(ev *Evaluation) []Finding {
	if ev.Links == nil || ev.Links.Broken == 0 {
		return nil
	}

	// List at most 3 offenders; the full count lives in the metrics
	listed := ev.Links.BrokenURLs
	suffix := ""
	if len(listed) > 3 {
		suffix = fmt.Sprintf(" and %d more", len(listed)-3)
		listed = listed[:3]
	}

	return []Finding{{
		Category: CategoryLinks,
		Severity: SeverityCritical,
		Message: fmt.Sprintf("Sampled links returned errors: %s%s.",
			strings.Join(listed, ", "), suffix),
		Recommendation: "Update or remove broken links to maintain trust and SEO health.",
	}}
}

func ruleRobotsAbsent(ev *Evaluation) []Finding {
	if ev.RobotsPresent {
		return nil
	}
	return []Finding{{
		Category:       CategoryCrawlability,
		Severity:       SeverityInfo,
		Message:        "Crawler directives file /robots.txt was not found or returned an error.",
		Recommendation: "Provide a robots.txt to guide search engine crawlers and list your sitemap.",
	}}
}
