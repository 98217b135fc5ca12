package normalize

import "strings"

// DefaultImageDenylist drops icons, social badges, logos, map tiles and inline SVGs
var DefaultImageDenylist = []string{
	"icon",
	"facebook",
	"instagram",
	"logo",
	"statichttps://maps",
	"staticmap",
	"maps.googleapis.com",
	"data:image/svg",
}

// ImagePolicy filters candidate image URLs
type ImagePolicy struct {
	// Deny drops a URL containing any of these substrings (case-insensitive)
	Deny []string
	// Require keeps only URLs containing at least one of these substrings
	Require []string
}

// Allowed reports whether u passes the policy
func (p ImagePolicy) Allowed(u string) bool {
	lower := strings.ToLower(u)
	for _, d := range p.Deny {
		if strings.Contains(lower, strings.ToLower(d)) {
			return false
		}
	}
	if len(p.Require) == 0 {
		return true
	}
	for _, r := range p.Require {
		if strings.Contains(lower, strings.ToLower(r)) {
			return true
		}
	}
	return false
}

// Images returns the primary image first followed by the others in their
// original order, without duplicates and without URLs rejected by policy.
func Images(primary string, images []string, policy ImagePolicy) []string {
	out := make([]string, 0, len(images)+1)
	seen := make(map[string]bool, len(images)+1)

	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] || !policy.Allowed(u) {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	add(primary)
	for _, u := range images {
		add(u)
	}
	return out
}
