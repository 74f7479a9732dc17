// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

// Package catalog implements the typed media catalog: per-kind resource
// schemas, input validation, and the generic filtered CRUD engine shared by
// movies, series, and music.
package catalog

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies one catalog resource kind.
type Kind string

const (
	KindMovies Kind = "movies"
	KindSeries Kind = "series"
	KindMusic  Kind = "music"
)

// Kinds lists every resource kind served by the API.
var Kinds = []Kind{KindMovies, KindSeries, KindMusic}

func (k Kind) String() string { return string(k) }

// Singular returns the kind's singular noun for user-facing messages.
func (k Kind) Singular() string {
	switch k {
	case KindMovies:
		return "movie"
	case KindMusic:
		return "music record"
	default:
		return string(k)
	}
}

// Badge is an optional enumerated label on a record. The zero value means
// "no badge" and marshals as JSON null, keeping the absent state distinct
// from any enumerated value.
type Badge struct {
	Value string
	Valid bool
}

// BadgeOf returns a present badge with the given value.
func BadgeOf(value string) Badge {
	return Badge{Value: value, Valid: true}
}

// MarshalJSON encodes the badge as its value, or null when absent.
func (b Badge) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(b.Value)
}

// UnmarshalJSON decodes either null or an enumerated string.
func (b *Badge) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Badge{}
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("badge must be a string or null: %w", err)
	}
	*b = Badge{Value: value, Valid: true}
	return nil
}

// Record is one stored catalog item. The same shape serves all three kinds;
// Artist is only populated for music. ID and CreatedAt are immutable for the
// record's lifetime, and UpdatedAt is refreshed on every successful mutation.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist,omitempty"`
	Image     string    `json:"image"`
	URL       string    `json:"url"`
	Badge     Badge     `json:"badge"`
	Category  string    `json:"category"`
	Profile   string    `json:"profile"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the mutable field set accepted by create and update.
type Input struct {
	Title    string `json:"title" validate:"required"`
	Artist   string `json:"artist"`
	Image    string `json:"image" validate:"required,url"`
	URL      string `json:"url" validate:"required,url"`
	Badge    Badge  `json:"badge"`
	Category string `json:"category" validate:"required"`
	Profile  string `json:"profile" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}
