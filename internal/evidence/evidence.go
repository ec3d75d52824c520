// Package evidence consolidates selected frames and their descriptions into
// one record per room instance.
package evidence

import (
	"sort"
	"strconv"
	"strings"
)

// Ellipsis marks a description truncated at the character budget.
const Ellipsis = "…"

// FrameEvidence is the per-frame input to grouping: a selected frame with
// its room label, description and detected objects.
type FrameEvidence struct {
	Index       int
	Path        string
	Room        string
	Description string
	Objects     []string
}

// Region is the consolidated per-room record fed to the analysis stages.
// It is immutable after grouping except for description backfill via
// SetDescription.
type Region struct {
	// Label is the room label, instance-numbered for repeatable rooms
	// (e.g. "Bedroom2").
	Label string `json:"region_label"`
	// Description is the merged, character-budgeted description text.
	Description string `json:"description"`
	// Images are the representative image paths, in frame order.
	Images []string `json:"images"`
	// Objects is the deduplicated union of detected labels in the group.
	Objects []string `json:"objects"`
	// FrameIndices are the original extracted-frame indices of every
	// member frame.
	FrameIndices []int `json:"frame_indices"`
}

// SetDescription backfills the merged description, e.g. after a late
// description call completes.
func (r *Region) SetDescription(desc string) { r.Description = desc }

// repeatableRooms may occur more than once per home and get numbered
// instances. Every other room type merges across the walkthrough.
var repeatableRooms = map[string]bool{
	"Bedroom":  true,
	"Bathroom": true,
	"Hallway":  true,
	"Balcony":  true,
}

// Grouper builds Region records from per-frame evidence.
type Grouper struct {
	// MaxPerRoom caps representative images per region, sampled by even
	// index stride for spatial coverage rather than score.
	MaxPerRoom int
	// CharBudget bounds the merged description length. Truncation happens
	// at the last whole word and appends the ellipsis marker.
	CharBudget int
}

// Group consolidates frames into room-instance regions. Frames are
// processed in index order. Consecutive frames sharing a repeatable room
// type form one instance; a frame of another room in between closes the
// run and a later return to that room type opens a new numbered instance.
// Non-repeatable room types merge into a single region.
func (g *Grouper) Group(frames []FrameEvidence) []Region {
	if len(frames) == 0 {
		return nil
	}

	ordered := make([]FrameEvidence, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	// Build contiguous runs per room.
	type run struct {
		room   string
		frames []FrameEvidence
	}
	var runs []run
	for _, fr := range ordered {
		if len(runs) > 0 && runs[len(runs)-1].room == fr.Room {
			last := &runs[len(runs)-1]
			last.frames = append(last.frames, fr)
			continue
		}
		runs = append(runs, run{room: fr.Room, frames: []FrameEvidence{fr}})
	}

	var regions []Region
	instanceCount := make(map[string]int)
	merged := make(map[string]int) // room -> regions index for non-repeatable rooms

	for _, r := range runs {
		if !repeatableRooms[r.room] {
			if idx, ok := merged[r.room]; ok {
				regions[idx] = g.extend(regions[idx], r.frames)
				continue
			}
			merged[r.room] = len(regions)
			regions = append(regions, g.build(r.room, r.frames))
			continue
		}

		instanceCount[r.room]++
		label := r.room
		if instanceCount[r.room] > 1 {
			label = label + strconv.Itoa(instanceCount[r.room])
		}
		regions = append(regions, g.build(label, r.frames))
	}

	return regions
}

// build creates a region from one run of frames.
func (g *Grouper) build(label string, frames []FrameEvidence) Region {
	region := Region{Label: label}
	return g.extend(region, frames)
}

// extend folds additional frames into a region: stride-resampled images,
// re-merged descriptions and the object union.
func (g *Grouper) extend(region Region, frames []FrameEvidence) Region {
	var descriptions []string
	if region.Description != "" {
		descriptions = append(descriptions, strings.TrimSuffix(region.Description, Ellipsis))
	}

	for _, fr := range frames {
		region.FrameIndices = append(region.FrameIndices, fr.Index)
		if fr.Description != "" {
			descriptions = append(descriptions, fr.Description)
		}
	}

	region.Images = append(region.Images, sampleByStride(frames, g.MaxPerRoom)...)
	if len(region.Images) > g.MaxPerRoom && g.MaxPerRoom > 0 {
		region.Images = region.Images[:g.MaxPerRoom]
	}

	region.Description = mergeDescriptions(descriptions, g.CharBudget)
	region.Objects = unionObjects(region.Objects, frames)
	return region
}

// sampleByStride picks up to max frames by even index stride, favoring
// spatial coverage over score.
func sampleByStride(frames []FrameEvidence, max int) []string {
	if len(frames) == 0 {
		return nil
	}
	if max < 1 || len(frames) <= max {
		paths := make([]string, 0, len(frames))
		for _, fr := range frames {
			paths = append(paths, fr.Path)
		}
		return paths
	}
	paths := make([]string, 0, max)
	for i := 0; i < max; i++ {
		pos := i * (len(frames) - 1) / (max - 1)
		paths = append(paths, frames[pos].Path)
	}
	return paths
}

// mergeDescriptions concatenates descriptions up to the character budget,
// truncating at the last whole word and appending the ellipsis marker.
func mergeDescriptions(descriptions []string, budget int) string {
	combined := strings.Join(descriptions, " ")
	if budget <= 0 || len(combined) <= budget {
		return combined
	}
	cut := combined[:budget]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + Ellipsis
}

// unionObjects merges the detected labels of frames into existing,
// deduplicated and sorted.
func unionObjects(existing []string, frames []FrameEvidence) []string {
	seen := make(map[string]bool, len(existing))
	for _, o := range existing {
		seen[o] = true
	}
	out := existing
	for _, fr := range frames {
		for _, o := range fr.Objects {
			if o == "" || seen[o] {
				continue
			}
			seen[o] = true
			out = append(out, o)
		}
	}
	sort.Strings(out)
	return out
}

