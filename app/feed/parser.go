package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Candidate, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	items := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.toCandidate(item))
	}

	return metadata, items, nil
}

func (p *Parser) toCandidate(item *gofeed.Item) Candidate {
	candidate := Candidate{
		Title:    strings.TrimSpace(item.Title),
		Link:     strings.TrimSpace(cmp.Or(item.Link, linkFromGUID(item.GUID))),
		Content:  cmp.Or(item.Content, item.Description),
		ImageURL: p.extractImage(item),
	}

	if item.PublishedParsed != nil {
		candidate.PubDate = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		candidate.PubDate = item.UpdatedParsed
	}

	return candidate
}

// extractImage looks at the item image, then image enclosures, then
// Media RSS thumbnails and content.
func (p *Parser) extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}

	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, name := range []string{"thumbnail", "content"} {
		for _, ext := range media[name] {
			if u := ext.Attrs["url"]; u != "" {
				if name == "content" && ext.Attrs["medium"] != "" && ext.Attrs["medium"] != "image" {
					continue
				}
				return u
			}
		}
	}

	return ""
}

// linkFromGUID uses a GUID as the link only when it is itself a URL.
func linkFromGUID(guid string) string {
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}
