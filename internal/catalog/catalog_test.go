package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skillxpress/skillxpress/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 64, c.Len())
	names := c.Names()
	assert.Equal(t, "Software Engineer", names[0])
	assert.Equal(t, "IoT Developer", names[len(names)-1])

	frontend, err := c.Lookup("Frontend Developer")
	require.NoError(t, err)
	assert.Equal(t, []types.RoleRequirement{
		{Skill: "HTML", Required: 85},
		{Skill: "CSS", Required: 80},
		{Skill: "JavaScript", Required: 85},
		{Skill: "React", Required: 75},
	}, frontend.Requirements)
}

func TestDefault_CanonicalizesSkills(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	backend, err := c.Lookup("backend developer")
	require.NoError(t, err)
	assert.Equal(t, "Node.js", backend.Requirements[0].Skill)
}

func TestLookup_UnknownRole(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Lookup("Astronaut")

	var unknown *types.UnknownRoleError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Astronaut", unknown.Role)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	role, err := c.Lookup("Software Engineer")
	require.NoError(t, err)
	role.Requirements[0].Required = 1

	again, err := c.Lookup("Software Engineer")
	require.NoError(t, err)
	assert.Equal(t, 80.0, again.Requirements[0].Required)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"schema violation", `{"roles":[{"name":"X","requirements":[{"skill":"Go","required":-1}]}]}`},
		{"duplicate role", `{"roles":[{"name":"X","requirements":[]},{"name":"x","requirements":[]}]}`},
		{"duplicate skill after aliasing", `{"roles":[{"name":"X","requirements":[{"skill":"nodejs","required":1},{"skill":"Node.js","required":2}]}]}`},
		{"not json", `roles`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"roles":[{"name":"Gopher","requirements":[{"skill":"golang","required":90}]}]}`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	role, err := c.Lookup("Gopher")
	require.NoError(t, err)
	assert.Equal(t, "Go", role.Requirements[0].Skill)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestResolve_MergesRoles(t *testing.T) {
	c, err := New([]types.Role{
		{Name: "A", Requirements: []types.RoleRequirement{{Skill: "HTML", Required: 70}, {Skill: "CSS", Required: 60}}},
		{Name: "B", Requirements: []types.RoleRequirement{{Skill: "SQL", Required: 75}, {Skill: "html", Required: 85}}},
	})
	require.NoError(t, err)

	merged, err := c.Resolve([]string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, "A + B", merged.Name)
	assert.Equal(t, []types.RoleRequirement{
		{Skill: "HTML", Required: 85},
		{Skill: "CSS", Required: 60},
		{Skill: "SQL", Required: 75},
	}, merged.Requirements)
}

func TestResolve_Errors(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	var unknown *types.UnknownRoleError
	_, err = c.Resolve([]string{"Frontend Developer", "Wizard"})
	assert.ErrorAs(t, err, &unknown)

	_, err = c.Resolve(nil)
	assert.ErrorAs(t, err, &unknown)
}
