// Package heroimage picks the lead photo of a rendered news page from the
// geometry of its images and headline.
package heroimage

import (
	"math"
	"sort"
	"strings"
)

// Rect is an element's bounding box in page pixels
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterY is the vertical center of the box
func (r Rect) CenterY() float64 {
	return r.Top + r.Height/2
}

// Element is one rendered <img> as reported by the browser
type Element struct {
	Src         string `json:"src"`
	DataSrc     string `json:"dataSrc"`
	DataLazySrc string `json:"dataLazySrc"`
	Selector    string `json:"selector"`
	Rect        Rect   `json:"rect"`
}

// Source resolves the image URL the way lazy loaders expose it
func (e Element) Source() string {
	for _, s := range []string{e.Src, e.DataSrc, e.DataLazySrc} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Candidate is an image that survived filtering
type Candidate struct {
	SourceRef string
	Selector  string
	Width     float64
	Height    float64
	Area      float64
	// Distance between the image's and the headline's vertical centers,
	// +Inf when the page has no headline.
	Distance float64
}

// Rules holds the empirically chosen heuristic constants
type Rules struct {
	MinWidth      float64
	MinHeight     float64
	ProximityBand float64
	Denylist      []string
}

// DefaultRules returns the stock thresholds
func DefaultRules() Rules {
	return Rules{
		MinWidth:      200,
		MinHeight:     150,
		ProximityBand: 800,
		Denylist:      []string{"avatar", "icon", "logo", "author", "profile", "user"},
	}
}

// Eligible applies the exclusion rules to a single element
func (r Rules) Eligible(e Element) bool {
	if e.Rect.Width < r.MinWidth || e.Rect.Height < r.MinHeight {
		return false
	}
	src := e.Source()
	if src == "" {
		return false
	}
	for _, deny := range r.Denylist {
		if deny != "" && strings.Contains(src, deny) {
			return false
		}
	}
	return true
}

// Rank filters the elements and orders the survivors best first.
// headline may be nil when the page has no heading.
func (r Rules) Rank(images []Element, headline *Rect) []Candidate {
	candidates := make([]Candidate, 0, len(images))
	for _, img := range images {
		if !r.Eligible(img) {
			continue
		}
		distance := math.Inf(1)
		if headline != nil {
			distance = math.Abs(img.Rect.CenterY() - headline.CenterY())
		}
		candidates = append(candidates, Candidate{
			SourceRef: img.Source(),
			Selector:  img.Selector,
			Width:     img.Rect.Width,
			Height:    img.Rect.Height,
			Area:      img.Rect.Width * img.Rect.Height,
			Distance:  distance,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return r.better(candidates[i], candidates[j])
	})
	return candidates
}

// better reports whether a outranks b. Inside the proximity band the closer
// image wins and any in-band image beats an out-of-band one; outside the band
// the larger image wins.
func (r Rules) better(a, b Candidate) bool {
	aNear := a.Distance < r.ProximityBand
	bNear := b.Distance < r.ProximityBand
	switch {
	case aNear && bNear:
		return a.Distance < b.Distance
	case aNear != bNear:
		return aNear
	default:
		return a.Area > b.Area
	}
}

// Select returns the top ranked image. ok is false when nothing qualifies,
// which is a normal outcome for text-only pages.
func (r Rules) Select(images []Element, headline *Rect) (best Candidate, ok bool) {
	ranked := r.Rank(images, headline)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}
