// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package catalog

import (
	"fmt"
	"strings"
)

// Shared enumerated domains, identical across resource kinds.
var (
	// Profiles are the named viewer profiles records can be scoped to.
	Profiles = []string{"julio", "irene"}

	// Platforms are the distribution channels records can be scoped to.
	Platforms = []string{"tmoj", "tmod"}

	// Badges are the allowed values for the optional badge label.
	Badges = []string{"ORIGINAL", "COMING_SOON"}
)

// Schema is the static field/domain contract for one resource kind. It has
// no behavior of its own beyond validating inputs against its domains; the
// generic engine consumes it as configuration.
type Schema struct {
	Kind Kind

	// Categories is the per-kind category domain.
	Categories []string

	// RequiresArtist marks kinds whose records carry a mandatory artist.
	RequiresArtist bool
}

// Schemas declares the three resource kinds served by the catalog.
var Schemas = map[Kind]Schema{
	KindMovies: {
		Kind:       KindMovies,
		Categories: []string{"latest", "classics", "musicals", "adventures"},
	},
	KindSeries: {
		Kind:       KindSeries,
		Categories: []string{"latest", "popular", "comedy", "drama"},
	},
	KindMusic: {
		Kind:           KindMusic,
		Categories:     []string{"latest", "popular", "rock", "pop", "electronic"},
		RequiresArtist: true,
	},
}

// SchemaFor returns the schema for the given kind.
func SchemaFor(kind Kind) (Schema, error) {
	schema, ok := Schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	return schema, nil
}

// Validate checks input against the schema and, on success, returns a
// normalized record carrying only the mutable fields. Identity and
// timestamps are left for the engine to assign. All failing fields are
// reported together.
func (s Schema) Validate(input Input) (Record, *ValidationError) {
	verr := &ValidationError{}

	input.Title = strings.TrimSpace(input.Title)
	input.Artist = strings.TrimSpace(input.Artist)

	// Artist belongs to kinds that declare it; anywhere else the field is
	// dropped rather than stored.
	if !s.RequiresArtist {
		input.Artist = ""
	}

	validateStruct(input, verr)

	if s.RequiresArtist && input.Artist == "" {
		verr.add("artist", "artist is required")
	}
	if input.Category != "" && !contains(s.Categories, input.Category) {
		verr.add("category", oneOfMessage("category", s.Categories))
	}
	if input.Profile != "" && !contains(Profiles, input.Profile) {
		verr.add("profile", oneOfMessage("profile", Profiles))
	}
	if input.Platform != "" && !contains(Platforms, input.Platform) {
		verr.add("platform", oneOfMessage("platform", Platforms))
	}
	if input.Badge.Valid && !contains(Badges, input.Badge.Value) {
		verr.add("badge", oneOfMessage("badge", Badges))
	}

	if len(verr.Fields) > 0 {
		return Record{}, verr
	}

	return Record{
		Title:    input.Title,
		Artist:   input.Artist,
		Image:    input.Image,
		URL:      input.URL,
		Badge:    input.Badge,
		Category: input.Category,
		Profile:  input.Profile,
		Platform: input.Platform,
	}, nil
}

func contains(domain []string, value string) bool {
	for _, v := range domain {
		if v == value {
			return true
		}
	}
	return false
}

func oneOfMessage(field string, domain []string) string {
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(domain, ", "))
}
