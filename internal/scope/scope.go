package scope

import (
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/rohmanhakim/docs-link-crawler/pkg/urlutil"
	"golang.org/x/net/publicsuffix"
)

/*
Scope answers two questions about a candidate URL:
  - is it excluded by a filter (fragment, extension, scheme)?
  - does it belong to the seed's origin?

Filters operate on the raw href as written in the page as well as on the
resolved URL, because an empty fragment ("page#") does not survive parsing.
Scope is immutable after construction and safe for concurrent use.
*/
type Scope struct {
	mode               config.OriginMode
	seedHost           string
	seedHostname       string
	siteDomain         string
	allowedHosts       map[string]struct{}
	allowedPathPrefix  []string
	excludedExtensions map[string]struct{}
}

type ExclusionReason string

const (
	ReasonFragment          ExclusionReason = "fragment"
	ReasonExcludedExtension ExclusionReason = "excluded_extension"
	ReasonUnsupportedScheme ExclusionReason = "unsupported_scheme"
	ReasonOutOfScope        ExclusionReason = "out_of_scope"
)

func NewScope(cfg config.Config) Scope {
	seed := urlutil.Canonicalize(cfg.SeedURL())

	s := Scope{
		mode:               cfg.OriginMode(),
		seedHost:           seed.Host,
		seedHostname:       seed.Hostname(),
		allowedHosts:       cfg.AllowedHosts(),
		allowedPathPrefix:  cfg.AllowedPathPrefix(),
		excludedExtensions: make(map[string]struct{}),
	}
	for _, ext := range cfg.ExcludedExtensions() {
		s.excludedExtensions[ext] = struct{}{}
	}
	if s.mode == config.OriginSite && net.ParseIP(s.seedHostname) == nil {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(s.seedHostname); err == nil {
			s.siteDomain = domain
		}
	}
	return s
}

// Excluded reports whether the URL is rejected by an exclusion filter.
// raw is the href as it appeared in markup; pass "" when unavailable.
func (s Scope) Excluded(raw string, u url.URL) (ExclusionReason, bool) {
	if strings.Contains(raw, "#") || u.Fragment != "" {
		return ReasonFragment, true
	}
	if !urlutil.IsHTTP(u) {
		return ReasonUnsupportedScheme, true
	}
	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
		if _, excluded := s.excludedExtensions[ext]; excluded {
			return ReasonExcludedExtension, true
		}
	}
	return "", false
}

// InScope reports whether u belongs to the crawl's origin and allowed paths.
func (s Scope) InScope(u url.URL) bool {
	if !urlutil.IsHTTP(u) {
		return false
	}
	canonical := urlutil.Canonicalize(u)
	if !s.hostAllowed(canonical) {
		return false
	}
	return s.pathAllowed(canonical.Path)
}

// Admit combines the exclusion filters, checked first, with the origin rule.
func (s Scope) Admit(raw string, u url.URL) (ExclusionReason, bool) {
	if reason, excluded := s.Excluded(raw, u); excluded {
		return reason, false
	}
	if !s.InScope(u) {
		return ReasonOutOfScope, false
	}
	return "", true
}

func (s Scope) hostAllowed(canonical url.URL) bool {
	host := canonical.Host
	hostname := canonical.Hostname()

	if _, ok := s.allowedHosts[host]; ok {
		return true
	}
	if _, ok := s.allowedHosts[hostname]; ok {
		return true
	}

	switch s.mode {
	case config.OriginSubdomains:
		return hostname == s.seedHostname || strings.HasSuffix(hostname, "."+s.seedHostname)
	case config.OriginSite:
		if s.siteDomain == "" {
			return host == s.seedHost
		}
		return hostname == s.siteDomain || strings.HasSuffix(hostname, "."+s.siteDomain)
	default:
		return host == s.seedHost
	}
}

func (s Scope) pathAllowed(p string) bool {
	if len(s.allowedPathPrefix) == 0 {
		return true
	}
	for _, prefix := range s.allowedPathPrefix {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
