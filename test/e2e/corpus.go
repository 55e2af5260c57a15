// Package e2e runs whole benchmark pipelines against a generated catalog.
package e2e

import (
	"fmt"

	"github.com/hyperjump/kurabe/internal/models"
)

// Corpus is a generated catalog plus query cases whose gold answers are known.
type Corpus struct {
	Documents []*models.Document
	Cases     []*models.QueryCase
}

type topic struct {
	title    string
	category string
	words    string
	text     string
}

var topics = []topic{
	{"Trail Runner", "shoes", "trail running shoe", "Grippy trail running shoe with rock plate and breathable mesh."},
	{"Road Trainer", "shoes", "road trainer cushioning", "Cushioned road trainer for daily miles with soft foam cushioning."},
	{"Hiking Boot", "shoes", "hiking boot leather", "Waterproof hiking boot in full grain leather with ankle support."},
	{"Dome Tent", "camping", "dome tent poles", "Freestanding dome tent with color coded poles and two doors."},
	{"Sleeping Bag", "camping", "sleeping bag down", "Mummy sleeping bag with responsibly sourced down fill."},
	{"Camp Stove", "camping", "camp stove burner", "Compact camp stove with a single burner and piezo igniter."},
	{"Water Bottle", "accessories", "water bottle insulated", "Insulated water bottle that keeps drinks cold all day."},
	{"Headlamp", "accessories", "headlamp rechargeable", "Rechargeable headlamp with red light and lock mode."},
	{"Rain Shell", "apparel", "rain shell waterproof", "Packable waterproof rain shell with pit zips."},
	{"Fleece Jacket", "apparel", "fleece jacket warm", "Warm fleece jacket for layering on cold mornings."},
}

// BuildCorpus returns n documents cycling through a fixed set of topics. Every
// document carries a unique model code, and every query case asks for one code
// together with its topic words so exactly one document is relevant.
func BuildCorpus(n int) *Corpus {
	c := &Corpus{
		Documents: make([]*models.Document, 0, n),
		Cases:     make([]*models.QueryCase, 0, n),
	}
	for i := 0; i < n; i++ {
		tp := topics[i%len(topics)]
		id := fmt.Sprintf("D%03d", i)
		code := ModelCode(i)
		c.Documents = append(c.Documents, &models.Document{
			DocID:    id,
			Title:    fmt.Sprintf("%s %d", tp.title, i/len(topics)+1),
			Text:     tp.text + " Model " + code + " in stock",
			Category: tp.category,
		})
		c.Cases = append(c.Cases, &models.QueryCase{
			CaseID:           fmt.Sprintf("Q%03d", i),
			RawText:          "looking for model " + code,
			IntentText:       tp.words + " " + code,
			BM25QueryText:    tp.words + " " + code,
			ExpectedDocIDs:   []string{id},
			ExpectedCategory: tp.category,
		})
	}
	return c
}

// ModelCode returns a lowercase alphanumeric code unique to i.
func ModelCode(i int) string {
	return fmt.Sprintf("kx%c%c%02d", 'a'+rune(i/26%26), 'a'+rune(i%26), i%100)
}
