package gather

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// AuthorityTier ranks how authoritative a web source is
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = iota
	TierPrimary                 // official documentation, standards, government, academic
	TierSecondary               // encyclopedias, code hosts, major publishers
	TierTertiary                // everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Credibility is the credibility seeded into web evidence from this tier.
// The evidence analyzer may later replace it.
func (t AuthorityTier) Credibility() float64 {
	switch t {
	case TierPrimary:
		return 0.9
	case TierSecondary:
		return 0.7
	default:
		return model.DefaultCredibility
	}
}

var (
	defaultPrimaryDomains = []string{
		"go.dev", "pkg.go.dev", "docs.python.org", "developer.mozilla.org",
		"rfc-editor.org", "ietf.org", "w3.org", "iso.org", "doi.org",
		"nih.gov", "who.int", "europa.eu", "legislation.gov.uk",
	}
	defaultSecondaryDomains = []string{
		"wikipedia.org", "github.com", "gitlab.com", "stackoverflow.com",
		"arxiv.org", "readthedocs.io", "britannica.com",
		"reuters.com", "apnews.com", "bbc.co.uk",
	}
	docPathPattern = regexp.MustCompile(`(?i)/(docs|documentation|reference|manual|spec|specification)(/|$)`)
)

// AuthorityClassifier assigns authority tiers to source URLs
type AuthorityClassifier struct {
	domainMap map[string]AuthorityTier
	primary   []string
	secondary []string
}

// NewAuthorityClassifier creates a classifier from the built-in domain lists.
// overrides maps exact hosts to "primary", "secondary" or "tertiary" and wins over the lists.
func NewAuthorityClassifier(overrides map[string]string) *AuthorityClassifier {
	c := &AuthorityClassifier{
		domainMap: make(map[string]AuthorityTier, len(overrides)),
		primary:   defaultPrimaryDomains,
		secondary: defaultSecondaryDomains,
	}
	for host, tier := range overrides {
		c.domainMap[strings.ToLower(host)] = ParseTier(tier)
	}
	return c
}

// Classify returns the tier of rawURL. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return TierTertiary
	}
	host := strings.ToLower(parsed.Hostname())

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return TierSecondary
	}

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return TierPrimary
	}
	if strings.HasPrefix(host, "docs.") || docPathPattern.MatchString(parsed.Path) {
		return TierSecondary
	}
	return TierTertiary
}

// Credibility is shorthand for Classify(rawURL).Credibility()
func (a *AuthorityClassifier) Credibility(rawURL string) float64 {
	return a.Classify(rawURL).Credibility()
}

// ParseTier converts a tier name or number; anything unrecognised is tertiary
func ParseTier(tier string) AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return TierPrimary
	case "secondary", "2":
		return TierSecondary
	default:
		return TierTertiary
	}
}

// matchesDomain reports whether host is one of domains or a subdomain of one
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
