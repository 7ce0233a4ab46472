package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

// AuthorityClassifier maps evidence source URLs to credibility tiers
type AuthorityClassifier struct {
	domainMap    map[string]model.Credibility
	primaryMap   map[string]bool
	secondaryMap map[string]bool
}

// NewAuthorityClassifier creates a new authority classifier
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	classifier := &AuthorityClassifier{
		domainMap:    make(map[string]model.Credibility),
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
	}

	for host, tier := range config.DomainMap {
		if credibility, ok := parseTier(tier); ok {
			classifier.domainMap[strings.ToLower(host)] = credibility
		}
	}
	for _, domain := range config.PrimaryDomains {
		classifier.primaryMap[strings.ToLower(domain)] = true
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondaryMap[strings.ToLower(domain)] = true
	}

	return classifier
}

// Classify returns S for primary authorities, A for secondary ones and B otherwise
func (a *AuthorityClassifier) Classify(rawURL string) model.Credibility {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return model.CredibilityB
	}

	host := strings.ToLower(parsed.Hostname())

	// Explicit mappings win
	if credibility, ok := a.domainMap[host]; ok {
		return credibility
	}

	if matchesDomain(host, a.primaryMap) {
		return model.CredibilityS
	}
	if matchesDomain(host, a.secondaryMap) {
		return model.CredibilityA
	}

	// Government and academic hosts
	for _, suffix := range []string{".gov", ".gov.cn", ".edu", ".edu.cn"} {
		if strings.HasSuffix(host, suffix) {
			return model.CredibilityS
		}
	}

	return model.CredibilityB
}

// matchesDomain reports whether host is one of the domains or a subdomain of one
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// parseTier accepts S/A/B as well as primary/secondary/tertiary
func parseTier(tier string) (model.Credibility, bool) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "s", "primary", "1":
		return model.CredibilityS, true
	case "a", "secondary", "2":
		return model.CredibilityA, true
	case "b", "tertiary", "3":
		return model.CredibilityB, true
	}
	return "", false
}
