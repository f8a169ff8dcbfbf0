package domain

import (
	"strings"
	"time"
)

// Category is one of the fixed catalogue categories.
type Category string

const (
	CategoryVideo        Category = "Video"
	CategoryImage        Category = "Image"
	CategoryAudio        Category = "Audio"
	CategoryText         Category = "Text"
	CategoryCode         Category = "Code"
	CategorySocial       Category = "Social/Creators"
	CategoryProductivity Category = "Productivity"
	CategorySiteBuilder  Category = "Website/App Builder"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryVideo,
	CategoryImage,
	CategoryAudio,
	CategoryText,
	CategoryCode,
	CategorySocial,
	CategoryProductivity,
	CategorySiteBuilder,
}

// Valid reports whether c belongs to the fixed enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PricingType classifies how a tool is paid for.
type PricingType string

const (
	PricingFree     PricingType = "Free"
	PricingFreemium PricingType = "Freemium"
	PricingPaid     PricingType = "Paid"
	PricingTrial    PricingType = "Trial"
)

// PricingTypes lists every valid pricing type.
var PricingTypes = []PricingType{PricingFree, PricingFreemium, PricingPaid, PricingTrial}

// Valid reports whether p belongs to the fixed enumeration.
func (p PricingType) Valid() bool {
	for _, known := range PricingTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Tool is a catalogued third-party product. It is read-only to the discovery engine.
type Tool struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	URL           string
	LogoURL       *string
	Categories    []Category
	PricingType   PricingType
	StartingPrice *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasCategory reports whether the tool carries the given category.
func (t Tool) HasCategory(c Category) bool {
	for _, own := range t.Categories {
		if own == c {
			return true
		}
	}
	return false
}

// CategoryText joins the categories with single spaces.
func (t Tool) CategoryText() string {
	parts := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, " ")
}

// ValidSlug reports whether s is lowercase and hyphen-delimited (e.g. "github-copilot").
func ValidSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	prevHyphen := false
	for _, r := range s {
		switch {
		case r == '-':
			if prevHyphen {
				return false
			}
			prevHyphen = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			prevHyphen = false
		default:
			return false
		}
	}
	return true
}
