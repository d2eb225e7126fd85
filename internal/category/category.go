// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package category detects the lexical flavour of a request. The search stage
// uses it to generate domain-appropriate fallback queries and the selector
// uses it to boost known portals and inject a curated source.
package category

import (
	"strings"
	"unicode"
)

// Category is a coarse topic bucket.
type Category string

const (
	Finance    Category = "finance"
	EV         Category = "ev"
	Restaurant Category = "restaurant"
	Generic    Category = "generic"
)

// Profile holds the per-category vocabulary and domain knowledge.
type Profile struct {
	Category Category

	// Terms trigger detection when one appears as a whole word or phrase.
	Terms []string

	// QuerySuffixes are appended to the topic to form fallback query variants.
	QuerySuffixes []string

	// BoostDomains receive a relevance bonus in the selector.
	BoostDomains []string

	// CuratedURL is spliced at the front of the selection when absent.
	CuratedURL string
}

// profiles are checked in order; the first match wins.
var profiles = []Profile{
	{
		Category: Finance,
		Terms: []string{
			"nse", "bse", "fii", "dii", "stock", "stocks", "share price", "sensex",
			"nifty", "mutual fund", "equity", "dividend", "market cap", "ipo", "forex",
		},
		QuerySuffixes: []string{"data table", "historical data", "daily statistics"},
		BoostDomains: []string{
			"nseindia.com", "bseindia.com", "moneycontrol.com", "economictimes.indiatimes.com",
			"investing.com", "finance.yahoo.com", "screener.in",
		},
		CuratedURL: "https://www.moneycontrol.com/stocks/marketstats/fii_dii_activity/index.php",
	},
	{
		Category: EV,
		Terms: []string{
			"ev", "electric vehicle", "charging", "charger", "charge point", "ev charging",
			"supercharger", "chargepoint",
		},
		QuerySuffixes: []string{"list locations", "station directory", "network map"},
		BoostDomains: []string{
			"plugshare.com", "chargepoint.com", "statiq.in", "tatapower.com", "openchargemap.org",
		},
		CuratedURL: "https://openchargemap.org/site/poi",
	},
	{
		Category: Restaurant,
		Terms: []string{
			"restaurant", "restaurants", "cafe", "cafes", "dining", "eatery", "food place",
			"bistro", "diner",
		},
		QuerySuffixes: []string{"list", "top rated", "directory"},
		BoostDomains: []string{
			"zomato.com", "tripadvisor.com", "yelp.com", "swiggy.com", "eazydiner.com",
		},
		CuratedURL: "https://www.tripadvisor.com/Restaurants",
	},
}

var generic = Profile{
	Category:      Generic,
	QuerySuffixes: []string{"list", "data", "statistics"},
}

// Detect returns the profile whose terms appear in text as whole words, or the
// generic profile.
func Detect(text string) Profile {
	padded := " " + words(text) + " "
	for _, p := range profiles {
		for _, term := range p.Terms {
			if strings.Contains(padded, " "+term+" ") {
				return p
			}
		}
	}
	return generic
}

// words lowercases text and replaces every non-alphanumeric run with one space.
func words(text string) string {
	f := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(f, " ")
}

// BoostsDomain reports whether domain belongs to one of the profile's boosted portals.
func (p Profile) BoostsDomain(domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	for _, d := range p.BoostDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
