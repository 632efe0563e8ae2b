package templater

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"phishsim/entity"
	"phishsim/pkg/goutil"
)

// LinkResult tags the outcome of a single link rewrite. Instrumentation is
// best-effort: a link that cannot be rewritten is passed through untouched
// rather than blocking delivery.
type LinkResult uint32

const (
	LinkPassedThrough LinkResult = iota
	LinkRewritten
)

var (
	hrefRegex     = regexp.MustCompile(`(?i)href\s*=\s*"([^"]*)"`)
	bodyCloseTag  = regexp.MustCompile(`(?i)</body>`)
	skippedScheme = []string{"mailto:", "tel:", "javascript:"}
)

// clickPathMarker is the tracking endpoint segment; a link that already
// carries it is never rewritten twice.
const clickPathMarker = "/c/"

// Templater renders a per-recipient message body: merge fields first, then
// link rewriting, then the open pixel.
type Templater struct {
	baseURL string
}

func New(baseURL string) *Templater {
	return &Templater{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type RenderInput struct {
	CampaignID uint64
	TargetID   uint64
	Target     *entity.Target
	SenderName string
}

func (t *Templater) Render(html string, in *RenderInput) string {
	html = t.MergeFields(html, in)
	html = t.RewriteLinks(html, in.CampaignID, in.TargetID)
	html = t.InjectPixel(html, in.CampaignID, in.TargetID)
	return html
}

// MergeFields substitutes the recognized placeholders. Unrecognized
// placeholders are left as literal text.
func (t *Templater) MergeFields(html string, in *RenderInput) string {
	r := strings.NewReplacer(
		"{{FirstName}}", in.Target.GetFirstName(),
		"{{LastName}}", in.Target.GetLastName(),
		"{{Email}}", in.Target.GetEmail(),
		"{{Position}}", in.Target.GetPosition(),
		"{{SenderName}}", in.SenderName,
		"{{TrackingURL}}", t.TrackingURL(in.CampaignID, in.TargetID),
	)
	return r.Replace(html)
}

// RewriteLinks replaces every eligible href value with a click-tracking
// URL. Only href attributes are touched; the open pixel injected later is
// an img src and cannot match.
func (t *Templater) RewriteLinks(html string, campaignID, targetID uint64) string {
	return hrefRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := hrefRegex.FindStringSubmatch(match)
		rewritten, result := t.RewriteLink(sub[1], campaignID, targetID)
		if result == LinkPassedThrough {
			return match
		}
		return fmt.Sprintf(`href="%s"`, rewritten)
	})
}

// RewriteLink rewrites one raw URL, reporting whether it was rewritten or
// passed through.
func (t *Templater) RewriteLink(rawURL string, campaignID, targetID uint64) (string, LinkResult) {
	if rawURL == "" {
		return rawURL, LinkPassedThrough
	}

	lower := strings.ToLower(rawURL)

	for _, scheme := range skippedScheme {
		if strings.HasPrefix(lower, scheme) {
			return rawURL, LinkPassedThrough
		}
	}

	// relative and fragment links stay local to the message
	if strings.HasPrefix(rawURL, "/") || strings.HasPrefix(rawURL, "#") {
		return rawURL, LinkPassedThrough
	}

	// already instrumented
	if strings.Contains(lower, clickPathMarker) {
		return rawURL, LinkPassedThrough
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, LinkPassedThrough
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return rawURL, LinkPassedThrough
	}

	return t.ClickURL(campaignID, targetID, rawURL), LinkRewritten
}

// InjectPixel appends exactly one zero-size open pixel, immediately before
// the closing body tag when one exists.
func (t *Templater) InjectPixel(html string, campaignID, targetID uint64) string {
	pixel := fmt.Sprintf(`<img src="%s" width="0" height="0" alt="" style="display:none">`, t.PixelURL(campaignID, targetID))

	if loc := bodyCloseTag.FindStringIndex(html); loc != nil {
		return html[:loc[0]] + pixel + html[loc[0]:]
	}

	return html + pixel
}

// TrackingURL is the landing-page link the {{TrackingURL}} placeholder
// resolves to.
func (t *Templater) TrackingURL(campaignID, targetID uint64) string {
	return fmt.Sprintf("%s/l/%d/%d", t.baseURL, campaignID, targetID)
}

func (t *Templater) ClickURL(campaignID, targetID uint64, originalURL string) string {
	return fmt.Sprintf("%s/c/%d/%d?u=%s", t.baseURL, campaignID, targetID, EncodeClickToken(originalURL))
}

func (t *Templater) PixelURL(campaignID, targetID uint64) string {
	return fmt.Sprintf("%s/o/%d/%d.gif", t.baseURL, campaignID, targetID)
}

// EncodeClickToken encodes the original destination for the click
// endpoint's u query param: base64url of the literal URL, percent-encoded
// for query safety. The redirect handler must recover the destination
// bit-exactly, so the scheme is fixed.
func EncodeClickToken(originalURL string) string {
	return url.QueryEscape(goutil.Base64Encode(originalURL))
}

// DecodeClickToken inverts EncodeClickToken. It accepts both the raw and
// the already percent-decoded form of the token.
func DecodeClickToken(token string) (string, error) {
	unescaped, err := url.QueryUnescape(token)
	if err != nil {
		return "", err
	}
	return goutil.Base64Decode(unescaped)
}
