// file: internal/provider/capability.go
// version: 1.0.0
// guid: 7d2c9e41-b6a8-4f05-93e1-0c4a8f5b2d67

package provider

import (
	"fmt"
	"strings"
)

// Capability names one kind of lookup a provider can serve.
type Capability string

const (
	CapISBNResolution      Capability = "ISBN_RESOLUTION"
	CapCoverImages         Capability = "COVER_IMAGES"
	CapMetadataEnrichment  Capability = "METADATA_ENRICHMENT"
	CapAuthorBiography     Capability = "AUTHOR_BIOGRAPHY"
	CapBookGeneration      Capability = "BOOK_GENERATION"
	CapRatings             Capability = "RATINGS"
	CapEditionVariants     Capability = "EDITION_VARIANTS"
	CapPublicDomain        Capability = "PUBLIC_DOMAIN"
	CapSubjectBrowsing     Capability = "SUBJECT_BROWSING"
	CapSeriesInfo          Capability = "SERIES_INFO"
	CapAwards              Capability = "AWARDS"
	CapTranslations        Capability = "TRANSLATIONS"
	CapEnhancedExternalIDs Capability = "ENHANCED_EXTERNAL_IDS"
)

var allCapabilities = []Capability{
	CapISBNResolution,
	CapCoverImages,
	CapMetadataEnrichment,
	CapAuthorBiography,
	CapBookGeneration,
	CapRatings,
	CapEditionVariants,
	CapPublicDomain,
	CapSubjectBrowsing,
	CapSeriesInfo,
	CapAwards,
	CapTranslations,
	CapEnhancedExternalIDs,
}

// AllCapabilities returns every capability in declaration order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// Valid reports whether c is one of the declared capabilities.
func (c Capability) Valid() bool {
	for _, known := range allCapabilities {
		if c == known {
			return true
		}
	}
	return false
}

func (c Capability) String() string { return string(c) }

// ParseCapability accepts the canonical name in any case, with dashes or
// underscores.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !c.Valid() {
		return "", fmt.Errorf("unknown capability %q", s)
	}
	return c, nil
}

// Implements reports whether adapter satisfies the interface for c.
func Implements(c Capability, adapter Adapter) bool {
	switch c {
	case CapISBNResolution:
		_, ok := adapter.(ISBNResolver)
		return ok
	case CapCoverImages:
		_, ok := adapter.(CoverProvider)
		return ok
	case CapMetadataEnrichment:
		_, ok := adapter.(MetadataProvider)
		return ok
	case CapAuthorBiography:
		_, ok := adapter.(AuthorBiographer)
		return ok
	case CapBookGeneration:
		_, ok := adapter.(BookGenerator)
		return ok
	case CapRatings:
		_, ok := adapter.(RatingsProvider)
		return ok
	case CapEditionVariants:
		_, ok := adapter.(EditionProvider)
		return ok
	case CapPublicDomain:
		_, ok := adapter.(PublicDomainProvider)
		return ok
	case CapSubjectBrowsing:
		_, ok := adapter.(SubjectBrowser)
		return ok
	case CapSeriesInfo:
		_, ok := adapter.(SeriesProvider)
		return ok
	case CapAwards:
		_, ok := adapter.(AwardsProvider)
		return ok
	case CapTranslations:
		_, ok := adapter.(TranslationProvider)
		return ok
	case CapEnhancedExternalIDs:
		_, ok := adapter.(ExternalIDProvider)
		return ok
	default:
		return false
	}
}
