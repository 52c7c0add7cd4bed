package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/naka-gawa/coverage-stats/internal/gateway"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	componentPlaceholder  = "Component_%03d"
	repositoryPlaceholder = "Repository_%03d"
	reposCoverageField    = "reposCoverage"
	isComponentField      = "isComponent"
)

// Obfuscator de-identifies a dataset by renaming components and repositories
// to sequential placeholders.
type Obfuscator struct {
	writer gateway.Writer
	logger *log.Logger
}

// NewObfuscator creates a new Obfuscator instance.
func NewObfuscator(writer gateway.Writer, logger *log.Logger) *Obfuscator {
	return &Obfuscator{writer: writer, logger: logger}
}

// Run obfuscates src and writes it as indented JSON to path.
func (o *Obfuscator) Run(src *gateway.RawDataset, path string) error {
	out, err := Obfuscate(src)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal obfuscated data: %w", err)
	}
	if err := o.writer.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write obfuscated data: %w", err)
	}
	o.logger.Info("obfuscated data written", "path", path, "entities", out.Len())
	return nil
}

// Obfuscate returns a renamed copy of src. Components become Component_NNN in
// source order, every repository key becomes Repository_NNN from one counter
// shared across the whole dataset, and every other field and name is copied.
func Obfuscate(src *gateway.RawDataset) (*gateway.RawDataset, error) {
	out := orderedmap.New[string, *gateway.RawEntity]()
	componentIndex, repoIndex := 1, 1

	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		entity := pair.Value
		if entity == nil {
			return nil, fmt.Errorf("%w: entity %q is null", domain.ErrMalformedInput, pair.Key)
		}
		isComp, err := rawIsComponent(entity)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", pair.Key, err)
		}

		name := pair.Key
		if isComp {
			name = fmt.Sprintf(componentPlaceholder, componentIndex)
			componentIndex++
		}

		copied := orderedmap.New[string, json.RawMessage]()
		for field := entity.Oldest(); field != nil; field = field.Next() {
			if field.Key != reposCoverageField {
				copied.Set(field.Key, field.Value)
				continue
			}
			repos, next, err := renameRepos(field.Value, repoIndex)
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", pair.Key, err)
			}
			repoIndex = next
			copied.Set(field.Key, repos)
		}
		out.Set(name, copied)
	}
	return out, nil
}

func rawIsComponent(entity *gateway.RawEntity) (bool, error) {
	raw, ok := entity.Get(isComponentField)
	if !ok {
		return false, fmt.Errorf("%w: missing %s", domain.ErrMalformedInput, isComponentField)
	}
	var isComp bool
	if err := json.Unmarshal(raw, &isComp); err != nil {
		return false, fmt.Errorf("%w: %s: %v", domain.ErrMalformedInput, isComponentField, err)
	}
	return isComp, nil
}

// renameRepos re-keys a reposCoverage object starting at index and returns
// the next free index.
func renameRepos(raw json.RawMessage, index int) (json.RawMessage, int, error) {
	repos := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, repos); err != nil {
		return nil, index, fmt.Errorf("%w: %s: %v", domain.ErrMalformedInput, reposCoverageField, err)
	}
	renamed := orderedmap.New[string, json.RawMessage]()
	for repo := repos.Oldest(); repo != nil; repo = repo.Next() {
		renamed.Set(fmt.Sprintf(repositoryPlaceholder, index), repo.Value)
		index++
	}
	data, err := json.Marshal(renamed)
	if err != nil {
		return nil, index, err
	}
	return data, index, nil
}
