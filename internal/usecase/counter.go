package usecase

import (
	"fmt"

	"github.com/naka-gawa/coverage-stats/internal/domain"
)

// CountElement selects what the Counter counts.
type CountElement string

const (
	CountRepos      CountElement = "repos"
	CountComponents CountElement = "components"
	CountLines      CountElement = "lines"
)

// CountElements lists every element in display order.
var CountElements = []CountElement{CountRepos, CountComponents, CountLines}

// ParseCountElement converts a selector string into a CountElement.
func ParseCountElement(s string) (CountElement, error) {
	for _, e := range CountElements {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: unknown element %q", domain.ErrInvalidSelector, s)
}

// Label is the human readable name printed next to a count.
func (e CountElement) Label() string {
	switch e {
	case CountRepos:
		return "Number of repositories"
	case CountComponents:
		return "Number of components"
	default:
		return "Number of valid lines"
	}
}

// Count dispatches to the scan for element.
func Count(ds *domain.Dataset, element CountElement) (int, error) {
	switch element {
	case CountRepos:
		return CountRepositories(ds)
	case CountComponents:
		return CountComponentEntities(ds)
	case CountLines:
		return CountValidLines(ds)
	}
	return 0, fmt.Errorf("%w: unknown element %q", domain.ErrInvalidSelector, element)
}

// CountRepositories sums the repository-map sizes of entities that have reposCoverage.
func CountRepositories(ds *domain.Dataset) (int, error) {
	total := 0
	err := ds.Each(func(_ string, e *domain.Entity) error {
		total += e.RepoCount()
		return nil
	})
	return total, err
}

// CountComponentEntities counts entities flagged isComponent.
func CountComponentEntities(ds *domain.Dataset) (int, error) {
	total := 0
	err := ds.Each(func(name string, e *domain.Entity) error {
		isComp, err := e.Component()
		if err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		if isComp {
			total++
		}
		return nil
	})
	return total, err
}

// CountValidLines sums lines-valid over every repository of every entity.
func CountValidLines(ds *domain.Dataset) (int, error) {
	total := 0
	err := ds.Each(func(name string, e *domain.Entity) error {
		t, err := e.Totals()
		if err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		total += t.Valid
		return nil
	})
	return total, err
}
