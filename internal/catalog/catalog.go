// Package catalog holds the job requirement catalog: an ordered, immutable
// list of roles with their skill requirement vectors.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/skillxpress/skillxpress/internal/schemas"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

//go:embed roles.json
var defaultRoles []byte

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	roles []types.Role
	index map[string]int
}

type catalogFile struct {
	Roles []types.Role `json:"roles"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultRoles)
}

// LoadFile reads a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a catalog document and builds the Catalog. Skill names are
// canonicalized; a role naming the same skill twice is rejected.
func Parse(data []byte) (*Catalog, error) {
	if err := schemas.Validate(schemas.RoleCatalog, data); err != nil {
		return nil, fmt.Errorf("invalid role catalog: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return New(file.Roles)
}

// New builds a Catalog from roles in declaration order.
func New(roles []types.Role) (*Catalog, error) {
	c := &Catalog{
		roles: make([]types.Role, 0, len(roles)),
		index: make(map[string]int, len(roles)),
	}
	for _, role := range roles {
		name := strings.TrimSpace(role.Name)
		key := roleKey(name)
		if key == "" {
			return nil, fmt.Errorf("role name is empty")
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("duplicate role %q", name)
		}
		reqs := make([]types.RoleRequirement, 0, len(role.Requirements))
		seen := make(map[string]bool, len(role.Requirements))
		for _, r := range role.Requirements {
			skill := skills.Canonical(r.Skill)
			if seen[skills.Key(skill)] {
				return nil, fmt.Errorf("role %q lists skill %q twice", name, skill)
			}
			seen[skills.Key(skill)] = true
			reqs = append(reqs, types.RoleRequirement{Skill: skill, Required: r.Required})
		}
		c.index[key] = len(c.roles)
		c.roles = append(c.roles, types.Role{Name: name, Requirements: reqs})
	}
	return c, nil
}

// Lookup returns the role with the given name (case-insensitive).
func (c *Catalog) Lookup(name string) (types.Role, error) {
	i, ok := c.index[roleKey(name)]
	if !ok {
		return types.Role{}, &types.UnknownRoleError{Role: name}
	}
	return cloneRole(c.roles[i]), nil
}

// Resolve looks up every name and merges them into a single requirement
// vector. Any unknown name fails the whole call.
func (c *Catalog) Resolve(names []string) (types.Role, error) {
	if len(names) == 0 {
		return types.Role{}, &types.UnknownRoleError{Role: ""}
	}
	roles := make([]types.Role, 0, len(names))
	for _, name := range names {
		role, err := c.Lookup(name)
		if err != nil {
			return types.Role{}, err
		}
		roles = append(roles, role)
	}
	return Merge(roles...), nil
}

// Names returns role names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.roles))
	for i, r := range c.roles {
		names[i] = r.Name
	}
	return names
}

// Roles returns a copy of every role in declaration order.
func (c *Catalog) Roles() []types.Role {
	out := make([]types.Role, len(c.roles))
	for i, r := range c.roles {
		out[i] = cloneRole(r)
	}
	return out
}

// Len returns the number of roles.
func (c *Catalog) Len() int {
	return len(c.roles)
}

// Merge combines roles into one: each skill keeps its highest required
// score and the position of its first declaration. Names are joined with " + ".
func Merge(roles ...types.Role) types.Role {
	if len(roles) == 1 {
		return cloneRole(roles[0])
	}
	names := make([]string, 0, len(roles))
	var reqs []types.RoleRequirement
	pos := map[string]int{}
	for _, role := range roles {
		names = append(names, role.Name)
		for _, r := range role.Requirements {
			key := skills.Key(r.Skill)
			if i, ok := pos[key]; ok {
				if r.Required > reqs[i].Required {
					reqs[i].Required = r.Required
				}
				continue
			}
			pos[key] = len(reqs)
			reqs = append(reqs, r)
		}
	}
	return types.Role{Name: strings.Join(names, " + "), Requirements: reqs}
}

func cloneRole(r types.Role) types.Role {
	return types.Role{
		Name:         r.Name,
		Requirements: append([]types.RoleRequirement(nil), r.Requirements...),
	}
}

func roleKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
