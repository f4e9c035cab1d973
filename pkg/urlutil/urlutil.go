package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize maps equivalent spellings of a URL to one form so that
// frontier and visited-set membership can be decided on strings.
//
//   - Scheme and host are lowercased
//   - Default ports are omitted (:80 for http, :443 for https)
//   - An empty path becomes "/"
//   - Fragments are removed
//
// The query and trailing slashes are kept: documentation sites commonly
// serve distinct pages for "/a" and "/a/", and for "?tab=x".
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl
	canonical.User = nil

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
			canonical.Host = host
		}
	}

	if canonical.Path == "" && canonical.Opaque == "" {
		canonical.Path = "/"
		canonical.RawPath = ""
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	if canonical.RawQuery == "" {
		canonical.ForceQuery = false
	}

	return canonical
}

// Key returns the canonical string form of u.
func Key(u url.URL) string {
	canonical := Canonicalize(u)
	return canonical.String()
}

// HostKey identifies the rate limiting and robots bucket for u (host[:port]).
func HostKey(u url.URL) string {
	return lowerASCII(u.Host)
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u url.URL) bool {
	scheme := lowerASCII(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// lowerASCII converts ASCII characters to lowercase, returning s itself
// when nothing needs to change.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
