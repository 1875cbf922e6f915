package rbac

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultMatrixYAML []byte

// ConfigError reports an invalid or incomplete permission matrix. It is
// fatal at startup: the process must not serve requests with an unmodeled
// (role, resource) pair.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "rbac: invalid matrix: " + strings.Join(e.Problems, "; ")
}

// Matrix is the static permission table. Loaded once at process start and
// immutable afterwards; there is no runtime mutation path.
type Matrix struct {
	grants map[Role]map[Resource]ActionSet
}

type matrixFile struct {
	Roles map[string]map[string][]string `yaml:"roles"`
}

// LoadMatrix parses a YAML matrix from r and validates it against the
// surface: every known role must define an entry (possibly empty) for every
// resource the surface references, and no entry may name an unknown role,
// resource, or action.
func LoadMatrix(r io.Reader, surface *Surface) (*Matrix, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rbac: read matrix: %w", err)
	}

	var file matrixFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("rbac: parse matrix: %w", err)
	}

	var problems []string
	grants := make(map[Role]map[Resource]ActionSet, len(file.Roles))
	for roleName, resources := range file.Roles {
		if !ValidRole(roleName) {
			problems = append(problems, fmt.Sprintf("unknown role %q", roleName))
			continue
		}
		role := Role(roleName)
		grants[role] = make(map[Resource]ActionSet, len(resources))
		for resourceName, actions := range resources {
			resource := Resource(resourceName)
			if !knownResource(surface, resource) {
				problems = append(problems, fmt.Sprintf("role %q references unknown resource %q", roleName, resourceName))
				continue
			}
			set := make(ActionSet, len(actions))
			for _, actionName := range actions {
				if !validAction(actionName) {
					problems = append(problems, fmt.Sprintf("role %q resource %q references unknown action %q", roleName, resourceName, actionName))
					continue
				}
				set[Action(actionName)] = struct{}{}
			}
			grants[role][resource] = set
		}
	}

	for _, role := range AllRoles() {
		resources, ok := grants[role]
		if !ok {
			problems = append(problems, fmt.Sprintf("role %q has no matrix entry", role))
			continue
		}
		for _, resource := range surface.Resources() {
			if _, ok := resources[resource]; !ok {
				problems = append(problems, fmt.Sprintf("missing entry for (%s, %s)", role, resource))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ConfigError{Problems: problems}
	}
	return &Matrix{grants: grants}, nil
}

// DefaultMatrix loads the matrix embedded in the binary.
func DefaultMatrix(surface *Surface) (*Matrix, error) {
	return LoadMatrix(strings.NewReader(string(defaultMatrixYAML)), surface)
}

// Actions returns the granted action set for a (role, resource) pair. The
// second return is false when the pair has no entry; callers must treat
// that as deny.
func (m *Matrix) Actions(role Role, resource Resource) (ActionSet, bool) {
	resources, ok := m.grants[role]
	if !ok {
		return nil, false
	}
	set, ok := resources[resource]
	return set, ok
}

func knownResource(surface *Surface, resource Resource) bool {
	for _, res := range surface.Resources() {
		if res == resource {
			return true
		}
	}
	return false
}
