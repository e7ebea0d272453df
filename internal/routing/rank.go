package routing

import (
	"fmt"
	"sort"
)

// Style is the display identity applied to a rank position.
type Style struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Palette maps rank positions to display styles. Rank 0 gets Primary,
// ranks 1..n cycle through Secondary.
type Palette struct {
	Primary   Style
	Secondary []Style
}

// DefaultPalette returns the map palette: red for the shortest route, then
// blue, green and purple for alternatives.
func DefaultPalette() Palette {
	return Palette{
		Primary: Style{Label: "Shortest", Color: "red"},
		Secondary: []Style{
			{Label: "Alternative", Color: "blue"},
			{Label: "Alternative", Color: "green"},
			{Label: "Alternative", Color: "purple"},
		},
	}
}

// styleFor returns the style for rank position i.
func (p Palette) styleFor(i int) Style {
	if i == 0 || len(p.Secondary) == 0 {
		return p.Primary
	}
	return p.Secondary[(i-1)%len(p.Secondary)]
}

// Relative length ratios separating the buckets.
const (
	comparableRatio = 1.10
	longerRatio     = 1.35
)

// Rank returns a copy of candidates sorted by ascending distance, ties broken
// by ID, with name, color, bucket and the primary flag assigned by position.
// Distances are never modified. Ranking a ranked list is a no-op.
func Rank(candidates []Candidate, palette Palette) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ranked := CloneAll(candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].ID < ranked[j].ID
	})

	shortest := ranked[0].DistanceKm
	for i := range ranked {
		style := palette.styleFor(i)
		ranked[i].Name = fmt.Sprintf("Route %d (%s)", i+1, style.Label)
		ranked[i].Color = style.Color
		ranked[i].Primary = i == 0
		ranked[i].Bucket = bucketFor(i, ranked[i].DistanceKm, shortest)
	}
	return ranked, nil
}

func bucketFor(rank int, distance, shortest float64) Bucket {
	if rank == 0 {
		return BucketShortest
	}
	ratio := distance / shortest
	switch {
	case ratio <= comparableRatio:
		return BucketComparable
	case ratio <= longerRatio:
		return BucketLonger
	default:
		return BucketMuchLonger
	}
}
