package feed

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Query parameters that only carry analytics, referral, email campaign or
// click-id data. Matched case-insensitively.
var trackingParams = toSet(
	// analytics
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"utm_id", "utm_name", "utm_reader", "utm_brand", "utm_social",
	"utm_social-type", "_ga", "_gl", "yclid",
	// referral
	"ref_src", "ref_url", "referrer",
	// email campaigns
	"mc_cid", "mc_eid", "_hsenc", "_hsmi", "mkt_tok", "vero_id", "oly_enc_id",
	// social and ad click ids
	"fbclid", "gclid", "gclsrc", "dclid", "msclkid", "twclid", "igshid",
	"ttclid", "li_fat_id", "si", "feature",
)

// For these hosts one parameter is the content identifier and is kept no
// matter what the tracking list says.
var contentIDParams = map[string]string{
	"youtube.com":          "v",
	"m.youtube.com":        "v",
	"www.youtube.com":      "v",
	"music.youtube.com":    "v",
	"youtube-nocookie.com": "v",
}

// NormalizeURL drops tracking query parameters and the fragment. The
// remaining parameters keep their original order and encoding. Input that
// is not an absolute URL is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	keep := contentIDParams[strings.ToLower(u.Hostname())]

	if u.RawQuery != "" {
		var kept []string
		for _, pair := range strings.Split(u.RawQuery, "&") {
			if pair == "" {
				continue
			}
			name := queryParamName(pair)
			if name != keep && trackingParams[name] {
				continue
			}
			kept = append(kept, pair)
		}
		u.RawQuery = strings.Join(kept, "&")
	}

	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}

// NormalizeTitle trims, lowercases and collapses whitespace runs.
func NormalizeTitle(title string) string {
	lower := cases.Lower(language.Und).String(title)
	return strings.Join(strings.Fields(lower), " ")
}

// IsDuplicate reports whether candidate matches, by normalized link or
// normalized title, an article already stored for feedID. Articles from
// other feeds are never considered: a story syndicated into two feeds
// belongs in both.
func IsDuplicate(feedID int64, candidate Candidate, existing []Article) bool {
	link := ""
	if candidate.Link != "" {
		link = NormalizeURL(candidate.Link)
	}
	title := NormalizeTitle(candidate.Title)

	for _, article := range existing {
		if article.FeedID != feedID {
			continue
		}
		if link != "" && article.Link != "" && NormalizeURL(article.Link) == link {
			return true
		}
		if title != "" && NormalizeTitle(article.Title) == title {
			return true
		}
	}

	return false
}

func queryParamName(pair string) string {
	name, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(name); err == nil {
		name = unescaped
	}
	return strings.ToLower(name)
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
