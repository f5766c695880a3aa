// Package annotations stores point annotations and the synaptic partner
// relations between them.
package annotations

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jamesainslie/go-cremi/geom"
)

// ErrUnknownAnnotation indicates a reference to an id that was never added.
var ErrUnknownAnnotation = errors.New("annotations: no annotation with id")

// Conventional annotation types.
const (
	PresynapticSite  = "presynaptic_site"
	PostsynapticSite = "postsynaptic_site"
)

// Partner links a presynaptic annotation to a postsynaptic one.
type Partner struct {
	Pre  uint64
	Post uint64
}

type entry struct {
	typ      string
	location []float64
}

// Annotations is an insertion-ordered set of point annotations. Locations
// are physical coordinates relative to Offset.
//
// IDs, Types and Locations enumerate in the same order.
type Annotations struct {
	Offset []float64

	order    []uint64
	entries  map[uint64]entry
	comments map[uint64]string
	partners []Partner
}

// New returns an empty annotation set.
func New() *Annotations {
	return &Annotations{
		entries:  make(map[uint64]entry),
		comments: make(map[uint64]string),
	}
}

// Add inserts an annotation. Adding an existing id replaces its type and
// location but keeps its position.
func (a *Annotations) Add(id uint64, typ string, location []float64) {
	if _, ok := a.entries[id]; !ok {
		a.order = append(a.order, id)
	}
	a.entries[id] = entry{typ: typ, location: slices.Clone(location)}
}

func (a *Annotations) check(id uint64) error {
	if _, ok := a.entries[id]; !ok {
		return fmt.Errorf("%w %d", ErrUnknownAnnotation, id)
	}
	return nil
}

// AddComment attaches a comment to an existing annotation.
func (a *Annotations) AddComment(id uint64, comment string) error {
	if err := a.check(id); err != nil {
		return err
	}
	a.comments[id] = comment
	return nil
}

// SetPrePostPartners records a synaptic partner relation between two
// existing annotations.
func (a *Annotations) SetPrePostPartners(pre, post uint64) error {
	if err := a.check(pre); err != nil {
		return err
	}
	if err := a.check(post); err != nil {
		return err
	}
	a.partners = append(a.partners, Partner{Pre: pre, Post: post})
	return nil
}

// Get returns the type and location of an annotation.
func (a *Annotations) Get(id uint64) (string, []float64, error) {
	if err := a.check(id); err != nil {
		return "", nil, err
	}
	e := a.entries[id]
	return e.typ, e.location, nil
}

// Len returns the number of annotations.
func (a *Annotations) Len() int { return len(a.order) }

// IDs returns annotation ids in insertion order.
func (a *Annotations) IDs() []uint64 {
	return slices.Clone(a.order)
}

// Types returns annotation types aligned with IDs.
func (a *Annotations) Types() []string {
	types := make([]string, len(a.order))
	for i, id := range a.order {
		types[i] = a.entries[id].typ
	}
	return types
}

// Locations returns annotation locations aligned with IDs.
func (a *Annotations) Locations() [][]float64 {
	locs := make([][]float64, len(a.order))
	for i, id := range a.order {
		locs[i] = a.entries[id].location
	}
	return locs
}

// Comment returns the comment of an annotation, if any.
func (a *Annotations) Comment(id uint64) (string, bool) {
	c, ok := a.comments[id]
	return c, ok
}

// CommentIDs returns the ids that carry a comment, in annotation order.
func (a *Annotations) CommentIDs() []uint64 {
	var ids []uint64
	for _, id := range a.order {
		if _, ok := a.comments[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PrePostPartners returns the partner relations in the order they were set.
func (a *Annotations) PrePostPartners() []Partner {
	return slices.Clone(a.partners)
}

// Dims returns the dimensionality of the stored locations, or of Offset
// when the set is empty.
func (a *Annotations) Dims() int {
	if len(a.order) > 0 {
		return len(a.entries[a.order[0]].location)
	}
	return len(a.Offset)
}

// Origin returns Offset, or zeros matching the location dimensionality.
func (a *Annotations) Origin() []float64 {
	return geom.OrZeros(a.Offset, a.Dims())
}
