package transform

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public delivery host of the asset service.
const DefaultBaseURL = "https://res.cloudinary.com"

const uploadPath = "/image/upload/"

// Locator renders the delivery URL of a descriptor:
// <base>/<cloud>/image/upload/<segments>/<assetId>.
// The asset service renders it lazily on first fetch.
func Locator(base, cloud string, d Descriptor) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('/')
	b.WriteString(cloud)
	b.WriteString(uploadPath)
	if len(d.tokens) > 0 {
		b.WriteString(d.String())
		b.WriteByte('/')
	}
	b.WriteString(escapeAssetPath(d.assetID))
	return b.String()
}

// escapeAssetPath escapes each folder of id separately so '/' survives.
func escapeAssetPath(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ParsedLocator holds the parts of a delivery URL.
type ParsedLocator struct {
	Base       string
	Cloud      string
	Descriptor string
	AssetID    string
}

// ParseLocator splits a URL produced by Locator. Because argument values are
// escaped, the descriptor never contains '/', so the first path element after
// /image/upload/ is the descriptor and the remainder is the asset ID (which
// may itself contain folders).
func ParseLocator(locator string) (ParsedLocator, error) {
	idx := strings.Index(locator, uploadPath)
	if idx < 0 {
		return ParsedLocator{}, fmt.Errorf("transform: %q is not a delivery URL", locator)
	}
	prefix := locator[:idx]
	slash := strings.LastIndex(prefix, "/")
	if slash < 0 || slash == len(prefix)-1 {
		return ParsedLocator{}, fmt.Errorf("transform: %q has no cloud name", locator)
	}
	rest := locator[idx+len(uploadPath):]
	desc, asset, ok := strings.Cut(rest, "/")
	if !ok || desc == "" || asset == "" {
		return ParsedLocator{}, fmt.Errorf("transform: %q has no descriptor", locator)
	}
	asset, err := url.PathUnescape(asset)
	if err != nil {
		return ParsedLocator{}, fmt.Errorf("transform: %q has a malformed asset ID: %w", locator, err)
	}
	return ParsedLocator{
		Base:       prefix[:slash],
		Cloud:      prefix[slash+1:],
		Descriptor: desc,
		AssetID:    asset,
	}, nil
}
