package domain

import "regexp"

// RuleTypeSimpleList selects the listing-page extraction strategy.
const RuleTypeSimpleList = "simpleList"

// ExtractionRule declares how candidate items are located on a listing page.
type ExtractionRule struct {
	Type           string `yaml:"type"`
	ItemSelector   string `yaml:"itemSelector"`
	TitleSelector  string `yaml:"titleSelector"`
	URLSelector    string `yaml:"urlSelector"`
	DateSelector   string `yaml:"dateSelector"`
	DateFormatHint string `yaml:"dateFormatHint"`
	Timezone       string `yaml:"timezone"`
	MaxItems       int    `yaml:"maxItems"`
}

// Source is one publisher whose listing page is crawled.
type Source struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	ListingURL string         `yaml:"listingUrl"`
	Enabled    *bool          `yaml:"enabled"`
	Rule       ExtractionRule `yaml:"rule"`
}

// IsEnabled treats an absent flag as enabled.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GroupIDPattern restricts group ids to characters that are safe as a single NATS subject token.
var GroupIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Group is a named collection of sources notified together.
type Group struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	SourceIDs   []string `yaml:"sourceIds"`
}

// Has reports whether the group lists the given source id.
func (g Group) Has(sourceID string) bool {
	for _, id := range g.SourceIDs {
		if id == sourceID {
			return true
		}
	}
	return false
}

// MembersOf filters sources down to exactly those listed in the group's membership, keeping input order.
func MembersOf(group Group, sources []Source) []Source {
	members := make([]Source, 0, len(group.SourceIDs))
	for _, src := range sources {
		if group.Has(src.ID) {
			members = append(members, src)
		}
	}
	return members
}
