package schema

import (
	"encoding/xml"
	"errors"
	"testing"
)

const appNS = "http://www.deegree.org/app"

func appName(local string) xml.Name { return xml.Name{Space: appNS, Local: local} }

func roadType() *FeatureType {
	return &FeatureType{
		Name: appName("Road"),
		Properties: []*PropertyType{
			{Name: appName("name"), Kind: KindSimple, MinOccurs: 1, MaxOccurs: 1},
			{Name: appName("lane"), Kind: KindSimple, MinOccurs: 0, MaxOccurs: Unbounded},
			{Name: appName("geom"), Kind: KindGeometry, MinOccurs: 2, MaxOccurs: 3,
				Substitutions: []xml.Name{appName("centerline")}},
		},
	}
}

func TestStateMachine(t *testing.T) {
	tests := []struct {
		name     string
		elements []string
		wantErr  error
		atFinish bool
	}{
		{"complete", []string{"name", "lane", "lane", "geom", "geom"}, nil, false},
		{"optional skipped", []string{"name", "geom", "centerline", "geom"}, nil, false},
		{"mandatory missing", []string{"lane", "geom", "geom"}, ErrMandatoryMissing, false},
		{"skipped mandatory before unknown", []string{"name", "other"}, ErrMandatoryMissing, false},
		{"mandatory missing at end", nil, ErrMandatoryMissing, true},
		{"too many", []string{"name", "name"}, ErrTooManyOccurrences, false},
		{"too few", []string{"name", "geom"}, ErrTooFewOccurrences, true},
		{"too many substitutions", []string{"name", "geom", "centerline", "geom", "geom"}, ErrTooManyOccurrences, false},
		{"unexpected", []string{"name", "geom", "geom", "other"}, ErrUnexpectedProperty, false},
		{"out of order", []string{"name", "geom", "geom", "lane"}, ErrUnexpectedProperty, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine(roadType())
			var err error
			for _, el := range tt.elements {
				if _, err = m.Advance(appName(el)); err != nil {
					break
				}
			}
			if err == nil {
				err = m.Finish()
			} else if tt.atFinish {
				t.Fatalf("expected failure at Finish, got %v during Advance", err)
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var se *SequenceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SequenceError, got %T", err)
			}
			if se.FeatureType != appName("Road") {
				t.Errorf("unexpected feature type in error: %v", se.FeatureType)
			}
		})
	}
}

func TestStateMachineReturnsDeclarationForSubstitution(t *testing.T) {
	m := NewStateMachine(roadType())
	if _, err := m.Advance(appName("name")); err != nil {
		t.Fatal(err)
	}
	pt, err := m.Advance(appName("centerline"))
	if err != nil {
		t.Fatal(err)
	}
	if pt.Name != appName("geom") {
		t.Errorf("expected geom declaration, got %v", pt.Name)
	}
	if m.Occurrences() != 1 {
		t.Errorf("expected 1 occurrence, got %d", m.Occurrences())
	}
}

func TestCardinalityExactlyOne(t *testing.T) {
	ft := &FeatureType{
		Name:       appName("Thing"),
		Properties: []*PropertyType{{Name: appName("p"), MinOccurs: 1, MaxOccurs: 1}},
	}

	m := NewStateMachine(ft)
	if err := m.Finish(); !errors.Is(err, ErrMandatoryMissing) {
		t.Errorf("zero occurrences: expected mandatory missing, got %v", err)
	}

	m = NewStateMachine(ft)
	if _, err := m.Advance(appName("p")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Advance(appName("p")); !errors.Is(err, ErrTooManyOccurrences) {
		t.Errorf("two occurrences: expected too many, got %v", err)
	}
}

func TestIsSubType(t *testing.T) {
	s := NewAppSchema()
	for _, ft := range []*FeatureType{
		{Name: appName("Abstract"), Abstract: true},
		{Name: appName("Road"), Parent: appName("Abstract")},
		{Name: appName("Highway"), Parent: appName("Road")},
		{Name: appName("River")},
	} {
		if err := s.Add(ft); err != nil {
			t.Fatal(err)
		}
	}

	if !s.IsSubType(appName("Highway"), appName("Abstract")) {
		t.Error("Highway should derive from Abstract")
	}
	if !s.IsSubType(appName("Road"), appName("Road")) {
		t.Error("a type is a subtype of itself")
	}
	if s.IsSubType(appName("River"), appName("Road")) {
		t.Error("River does not derive from Road")
	}
	if err := s.Add(&FeatureType{Name: appName("Road")}); !errors.Is(err, ErrDuplicateFeatureType) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}
