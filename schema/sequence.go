package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Sequence errors, matched with errors.Is against a *SequenceError.
var (
	ErrUnexpectedProperty = errors.New("unexpected property")
	ErrTooManyOccurrences = errors.New("too many occurrences")
	ErrTooFewOccurrences  = errors.New("too few occurrences")
	ErrMandatoryMissing   = errors.New("mandatory property missing")
)

// SequenceError reports a violation of a feature type's property sequence.
type SequenceError struct {
	Err         error
	FeatureType xml.Name
	Property    xml.Name // offending declaration (or element, for ErrUnexpectedProperty)
	Count       int
	MinOccurs   int
	MaxOccurs   int
}

func (e *SequenceError) Error() string {
	switch e.Err {
	case ErrTooManyOccurrences:
		return fmt.Sprintf("%v of %s in %s (maxOccurs=%d)", e.Err, QName(e.Property), QName(e.FeatureType), e.MaxOccurs)
	case ErrTooFewOccurrences:
		return fmt.Sprintf("%v of %s in %s: found %d, minOccurs=%d", e.Err, QName(e.Property), QName(e.FeatureType), e.Count, e.MinOccurs)
	}
	return fmt.Sprintf("%v %s in %s", e.Err, QName(e.Property), QName(e.FeatureType))
}

func (e *SequenceError) Unwrap() error { return e.Err }

// StateMachine tracks the position of a parse within a feature type's
// ordered property declarations.
type StateMachine struct {
	featureType xml.Name
	decls       []*PropertyType
	cursor      int
	occurrences int
}

// NewStateMachine starts at the first declaration of ft.
func NewStateMachine(ft *FeatureType) *StateMachine {
	return &StateMachine{featureType: ft.Name, decls: ft.Properties}
}

// Active returns the active declaration, or nil once exhausted.
func (m *StateMachine) Active() *PropertyType {
	if m.cursor >= len(m.decls) {
		return nil
	}
	return m.decls[m.cursor]
}

// Occurrences returns how often the active declaration has matched.
func (m *StateMachine) Occurrences() int { return m.occurrences }

// Advance matches the element name against the active declaration,
// skipping declarations as needed, and counts the occurrence.
func (m *StateMachine) Advance(name xml.Name) (*PropertyType, error) {
	for m.cursor < len(m.decls) {
		d := m.decls[m.cursor]
		if d.FindConcrete(name) != nil {
			if d.MaxOccurs != Unbounded && m.occurrences+1 > d.MaxOccurs {
				return nil, &SequenceError{
					Err:         ErrTooManyOccurrences,
					FeatureType: m.featureType,
					Property:    d.Name,
					Count:       m.occurrences + 1,
					MinOccurs:   d.MinOccurs,
					MaxOccurs:   d.MaxOccurs,
				}
			}
			m.occurrences++
			return d, nil
		}
		if err := m.leave(d); err != nil {
			return nil, err
		}
		m.cursor++
		m.occurrences = 0
	}
	return nil, &SequenceError{Err: ErrUnexpectedProperty, FeatureType: m.featureType, Property: name}
}

// Finish verifies that the remaining declarations are satisfied.
func (m *StateMachine) Finish() error {
	for m.cursor < len(m.decls) {
		if err := m.leave(m.decls[m.cursor]); err != nil {
			return err
		}
		m.cursor++
		m.occurrences = 0
	}
	return nil
}

func (m *StateMachine) leave(d *PropertyType) error {
	if m.occurrences >= d.MinOccurs {
		return nil
	}
	err := ErrTooFewOccurrences
	if m.occurrences == 0 {
		err = ErrMandatoryMissing
	}
	return &SequenceError{
		Err:         err,
		FeatureType: m.featureType,
		Property:    d.Name,
		Count:       m.occurrences,
		MinOccurs:   d.MinOccurs,
		MaxOccurs:   d.MaxOccurs,
	}
}
