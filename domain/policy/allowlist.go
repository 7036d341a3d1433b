package policy

import (
	"net/url"
	"strings"

	apperrors "ebird-proxy/pkg/errors"
)

// DefaultAllowedPrefixes lists the upstream path families the proxy will
// relay. Everything else is rejected; this is the sole boundary preventing
// the proxy from being used as an open relay.
func DefaultAllowedPrefixes() []string {
	return []string{
		"/data/obs",
		"/ref/hotspot",
		"/ref/region",
		"/product/spplist",
		"/product/lists",
		"/product/top100",
		"/ref/taxonomy",
	}
}

// Allowlist validates requested upstream paths against a fixed set of
// permitted prefixes.
type Allowlist struct {
	prefixes []string
}

// NewAllowlist creates a validator over the given prefixes, falling back to
// the defaults when none are configured.
func NewAllowlist(prefixes []string) *Allowlist {
	if len(prefixes) == 0 {
		prefixes = DefaultAllowedPrefixes()
	}
	return &Allowlist{prefixes: prefixes}
}

// Validate percent-decodes the raw endpoint and checks it against the
// allowlist. Matching is strict prefix match, not substring or regex, so a
// crafted path segment cannot bypass it. Returns the decoded path.
func (a *Allowlist) Validate(rawEndpoint string) (string, error) {
	decoded, err := url.PathUnescape(rawEndpoint)
	if err != nil {
		return "", apperrors.NewInvalidEncoding(err)
	}

	for _, prefix := range a.prefixes {
		if strings.HasPrefix(decoded, prefix) {
			return decoded, nil
		}
	}

	return "", apperrors.NewPathNotAllowed(decoded, a.Prefixes())
}

// Prefixes returns a copy of the permitted prefix list
func (a *Allowlist) Prefixes() []string {
	out := make([]string, len(a.prefixes))
	copy(out, a.prefixes)
	return out
}
