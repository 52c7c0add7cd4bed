package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SystemReposKey is the entity whose repositories make up the system-repos report.
const SystemReposKey = "System repos"

var validate = validator.New()

// CoverageRecord holds the line counts measured for one repository.
// Pointers distinguish an absent field from a zero count.
type CoverageRecord struct {
	LinesValid   *int `json:"lines-valid" validate:"required,min=0"`
	LinesCovered *int `json:"lines-covered" validate:"required,min=0"`
}

// NewCoverageRecord builds a record from plain counts.
func NewCoverageRecord(valid, covered int) CoverageRecord {
	return CoverageRecord{LinesValid: &valid, LinesCovered: &covered}
}

// Totals validates the record and returns its counts.
func (r CoverageRecord) Totals() (Totals, error) {
	if err := validate.Struct(r); err != nil {
		return Totals{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if *r.LinesCovered > *r.LinesValid {
		return Totals{}, fmt.Errorf("%w: lines-covered %d exceeds lines-valid %d",
			ErrMalformedInput, *r.LinesCovered, *r.LinesValid)
	}
	return Totals{Valid: *r.LinesValid, Covered: *r.LinesCovered}, nil
}

// Repos is the ordered repository -> coverage mapping of an entity.
type Repos = orderedmap.OrderedMap[string, CoverageRecord]

// NewRepos returns an empty ordered repository mapping.
func NewRepos() *Repos {
	return orderedmap.New[string, CoverageRecord]()
}

// Entity is a named item of the dataset: either a component or a grouping division.
type Entity struct {
	IsComponent   *bool  `json:"isComponent"`
	Bugs          *int   `json:"bugs,omitempty"`
	ReposCoverage *Repos `json:"reposCoverage,omitempty"`
}

// UnmarshalJSON accepts bugs as a JSON number or as a quoted integer, the
// form hand-edited datasets sometimes carry. Fractional numbers truncate.
func (e *Entity) UnmarshalJSON(data []byte) error {
	type plain Entity
	aux := struct {
		*plain
		Bugs json.RawMessage `json:"bugs,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Bugs = nil
	if len(aux.Bugs) == 0 || string(aux.Bugs) == "null" {
		return nil
	}

	var raw any
	if err := json.Unmarshal(aux.Bugs, &raw); err != nil {
		return err
	}
	var (
		n   int
		err error
	)
	switch v := raw.(type) {
	case float64:
		n, err = cast.ToIntE(v)
	case string:
		digits := strings.TrimLeft(strings.TrimSpace(v), "0")
		if digits == "" && strings.TrimSpace(v) != "" {
			digits = "0"
		}
		if digits == "" {
			return fmt.Errorf("bugs: empty string")
		}
		n, err = cast.ToIntE(digits)
	default:
		return fmt.Errorf("bugs: unsupported value %s", aux.Bugs)
	}
	if err != nil {
		return fmt.Errorf("bugs: %w", err)
	}
	e.Bugs = &n
	return nil
}

// Component reports whether the entity is flagged as a component.
func (e *Entity) Component() (bool, error) {
	if e == nil || e.IsComponent == nil {
		return false, fmt.Errorf("%w: missing isComponent", ErrMalformedInput)
	}
	return *e.IsComponent, nil
}

// BugCount returns the reported bugs. Components must carry the field.
func (e *Entity) BugCount() (int, error) {
	if e.Bugs == nil {
		return 0, fmt.Errorf("%w: missing bugs", ErrMalformedInput)
	}
	if *e.Bugs < 0 {
		return 0, fmt.Errorf("%w: negative bugs %d", ErrMalformedInput, *e.Bugs)
	}
	return *e.Bugs, nil
}

// HasRepos reports whether the reposCoverage field is present at all.
func (e *Entity) HasRepos() bool {
	return e.ReposCoverage != nil
}

// RepoCount is the number of repositories, 0 when reposCoverage is absent.
func (e *Entity) RepoCount() int {
	if e.ReposCoverage == nil {
		return 0
	}
	return e.ReposCoverage.Len()
}

// ValidComponent reports whether the entity is a component owning at least one repository.
func (e *Entity) ValidComponent() (bool, error) {
	isComp, err := e.Component()
	if err != nil {
		return false, err
	}
	return isComp && e.RepoCount() > 0, nil
}

// EachRepo calls fn for every repository in source order with its validated totals.
func (e *Entity) EachRepo(fn func(name string, t Totals) error) error {
	if e.ReposCoverage == nil {
		return nil
	}
	for pair := e.ReposCoverage.Oldest(); pair != nil; pair = pair.Next() {
		t, err := pair.Value.Totals()
		if err != nil {
			return fmt.Errorf("repository %q: %w", pair.Key, err)
		}
		if err := fn(pair.Key, t); err != nil {
			return err
		}
	}
	return nil
}

// Totals sums the line counts of all repositories of the entity.
func (e *Entity) Totals() (Totals, error) {
	var sum Totals
	err := e.EachRepo(func(_ string, t Totals) error {
		sum = sum.Add(t)
		return nil
	})
	return sum, err
}

// Dataset is the ordered entity name -> Entity mapping loaded from JSON.
// Iteration follows the order of the source document.
type Dataset struct {
	entities *orderedmap.OrderedMap[string, *Entity]
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{entities: orderedmap.New[string, *Entity]()}
}

// ParseDataset decodes a JSON document into a Dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	ds := NewDataset()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return ds, nil
}

// Set adds or replaces an entity, keeping the original position on replace.
func (d *Dataset) Set(name string, e *Entity) {
	d.entities.Set(name, e)
}

// Get looks up an entity by name.
func (d *Dataset) Get(name string) (*Entity, bool) {
	return d.entities.Get(name)
}

// Len is the number of entities.
func (d *Dataset) Len() int {
	return d.entities.Len()
}

// Each calls fn for every entity in source order, stopping at the first error.
func (d *Dataset) Each(fn func(name string, e *Entity) error) error {
	for pair := d.entities.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return fmt.Errorf("%w: entity %q is null", ErrMalformedInput, pair.Key)
		}
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	if d.entities == nil {
		d.entities = orderedmap.New[string, *Entity]()
	}
	return d.entities.UnmarshalJSON(data)
}

func (d *Dataset) MarshalJSON() ([]byte, error) {
	return d.entities.MarshalJSON()
}
