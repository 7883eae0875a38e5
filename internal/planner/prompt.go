package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/world"
)

// buildPlanPrompt assembles the user prompt: the request, the tile
// vocabulary, and — for modification requests — a structural summary of the
// existing world.
func buildPlanPrompt(request string, idx *assetpack.Index, existing *world.World, maxTiles int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Request\n%s\n\n", request)
	fmt.Fprintf(&b, "Tile budget: at most %d tiles in the finished world.\n\n", maxTiles)

	b.WriteString(packDescription(idx))

	if existing != nil && existing.TileCount() > 0 {
		b.WriteString("\n")
		b.WriteString(worldSummary(existing, idx))
		b.WriteString("\nThis is a modification request: extend or rework the existing world rather than starting over.\n")
	}

	return b.String()
}

// packDescription renders a compact tile/add-on vocabulary: id, edge-type
// sequence, tags.
func packDescription(idx *assetpack.Index) string {
	var b strings.Builder
	pack := idx.Pack()

	fmt.Fprintf(&b, "## Tile vocabulary (pack %q)\n", pack.ID)
	for i := range pack.Tiles {
		t := &pack.Tiles[i]
		fmt.Fprintf(&b, "- %s: edges [%s]", t.ID, strings.Join(t.Edges, ", "))
		if len(t.Tags) > 0 {
			fmt.Fprintf(&b, " tags [%s]", strings.Join(t.Tags, ", "))
		}
		b.WriteString("\n")
	}

	if len(pack.AddOns) > 0 {
		b.WriteString("\n## Add-ons\n")
		for i := range pack.AddOns {
			a := &pack.AddOns[i]
			fmt.Fprintf(&b, "- %s", a.ID)
			if len(a.Tags) > 0 {
				fmt.Fprintf(&b, " tags [%s]", strings.Join(a.Tags, ", "))
			}
			if len(a.RequiredTileTags) > 0 {
				fmt.Fprintf(&b, " requires tile tags [%s]", strings.Join(a.RequiredTileTags, ", "))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// worldSummary renders the existing world's structure: composition
// histogram, bounding box, boundary tiles, and the dominant theme inferred
// from tile tags.
func worldSummary(w *world.World, idx *assetpack.Index) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Existing world (%d tiles)\n", w.TileCount())

	histogram := make(map[string]int)
	tagCounts := make(map[string]int)
	for _, t := range w.Tiles() {
		histogram[t.TileType]++
		if def, ok := idx.Tile(t.TileType); ok {
			for _, tag := range def.Tags {
				tagCounts[tag]++
			}
		}
	}

	types := make([]string, 0, len(histogram))
	for id := range histogram {
		types = append(types, id)
	}
	sort.Strings(types)
	b.WriteString("Composition: ")
	for i, id := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s ×%d", id, histogram[id])
	}
	b.WriteString("\n")

	if min, max, ok := w.Bounds(); ok {
		fmt.Fprintf(&b, "Bounding box: q %d..%d, r %d..%d\n", min.Q, max.Q, min.R, max.R)
	}

	if theme := dominantTag(tagCounts); theme != "" {
		fmt.Fprintf(&b, "Dominant theme: %s\n", theme)
	}

	boundary := w.BoundaryTiles()
	if len(boundary) > 0 {
		b.WriteString("Boundary tiles (open neighbors, room to grow):\n")
		shown := 0
		for _, t := range boundary {
			if shown >= 12 {
				fmt.Fprintf(&b, "(%d more not shown)\n", len(boundary)-shown)
				break
			}
			fmt.Fprintf(&b, "- %s at %s\n", t.TileType, t.Pos)
			shown++
		}
	}

	return b.String()
}

// dominantTag picks the most frequent tag; ties break lexicographically so
// repeated summaries of the same world agree.
func dominantTag(counts map[string]int) string {
	best := ""
	bestCount := 0
	for tag, n := range counts {
		if n > bestCount || (n == bestCount && tag < best) {
			best = tag
			bestCount = n
		}
	}
	return best
}
