package assemble

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sitebook/sitebook/internal/anchor"
	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/outline"
)

// ErrAllSectionsEmpty is returned when no section of a volume produced
// any pages; there is nothing to render.
var ErrAllSectionsEmpty = errors.New("every section of the volume is empty")

// EmptySectionError records a section that yielded no pages. It is
// reported alongside a successful assembly, not instead of one.
type EmptySectionError struct {
	// Section is the name of the empty section.
	Section string
}

// Error returns the error message.
func (e *EmptySectionError) Error() string {
	return fmt.Sprintf("section %q produced no pages", e.Section)
}

// SectionInput pairs a crawled section with its outline policy.
type SectionInput struct {
	Section *model.Section
	Policy  outline.Policy
}

// Assemble combines the sections into a volume. The returned empty
// section errors are advisory; the error return is non-nil only when
// assembly cannot proceed at all.
//
// The volume's outline roots correspond one-to-one, in order, with the
// non-empty input sections. A section whose own hierarchy has a single
// root contributes that root directly; a multi-rooted section is
// wrapped under a node carrying the section name.
func Assemble(name string, meta model.Metadata, inputs []SectionInput) (*model.Volume, []*EmptySectionError, error) {
	var empties []*EmptySectionError
	var kept []SectionInput
	for _, in := range inputs {
		if len(in.Section.Pages) == 0 {
			empties = append(empties, &EmptySectionError{Section: in.Section.Name})
			continue
		}
		sortPages(in.Section.Pages)
		kept = append(kept, in)
	}
	if len(kept) == 0 {
		return nil, empties, ErrAllSectionsEmpty
	}

	var allPages []*model.Page
	for _, in := range kept {
		allPages = append(allPages, in.Section.Pages...)
	}
	anchors := anchor.BuildMap(allPages)

	var forest []*model.OutlineNode
	sections := make([]*model.Section, 0, len(kept))
	for _, in := range kept {
		sections = append(sections, in.Section)

		sectionForest, err := outline.Build(in.Section.Pages, in.Policy, anchors)
		if err != nil {
			return nil, empties, fmt.Errorf("outline for section %q: %w", in.Section.Name, err)
		}
		forest = append(forest, sectionRoot(in.Section.Name, sectionForest))
	}

	return &model.Volume{
		Name:        name,
		Meta:        meta,
		GeneratedAt: time.Now(),
		Sections:    sections,
		URLMap:      anchors.All(),
		Outline:     forest,
	}, empties, nil
}

// sectionRoot reduces a section's forest to the single root the volume
// outline requires.
func sectionRoot(name string, forest []*model.OutlineNode) *model.OutlineNode {
	if len(forest) == 1 {
		return forest[0]
	}
	return &model.OutlineNode{
		Label:       name,
		Placeholder: true,
		Children:    forest,
	}
}

// sortPages puts pages into display order: explicit order hints first
// in hint order, then everything else by discovery sequence.
func sortPages(pages []*model.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		ri, rj := orderRank(pages[i]), orderRank(pages[j])
		if ri != rj {
			return ri < rj
		}
		return pages[i].Seq < pages[j].Seq
	})
}

func orderRank(p *model.Page) int {
	if p.Order > 0 {
		return p.Order
	}
	return int(^uint(0) >> 1) // max int
}
