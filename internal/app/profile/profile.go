// Package profile maps session profile names to the groups enabled when a
// session starts.
package profile

import (
	"fmt"
	"slices"
	"strings"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

const (
	Explore   domain.ProfileName = "explore"
	Architect domain.ProfileName = "architect"
	Review    domain.ProfileName = "review"
	Test      domain.ProfileName = "test"
	Generator domain.ProfileName = "generator"
	Reflector domain.ProfileName = "reflector"
	Curator   domain.ProfileName = "curator"
	Docs      domain.ProfileName = "docs"
	Lint      domain.ProfileName = "lint"
	API       domain.ProfileName = "api"
	DevDeploy domain.ProfileName = "dev-deploy"
	Full      domain.ProfileName = "full"
	None      domain.ProfileName = "none"
)

// Profiles lists every profile in display order.
func Profiles() []domain.SessionProfile {
	var all []domain.GroupID
	for _, spec := range catalog.DefaultGroups() {
		all = append(all, spec.ID)
	}
	return []domain.SessionProfile{
		{Name: Explore, Description: "Codebase discovery: filesystem, search, git",
			Groups: []domain.GroupID{catalog.GroupFilesystem, catalog.GroupSearch, catalog.GroupGit}},
		{Name: Architect, Description: "System design: filesystem, search, reference documentation",
			Groups: []domain.GroupID{catalog.GroupFilesystem, catalog.GroupSearch, catalog.GroupReference}},
		{Name: Review, Description: "Code review: git diffs, search, file comparison",
			Groups: []domain.GroupID{catalog.GroupGit, catalog.GroupSearch, catalog.GroupDiff}},
		{Name: Test, Description: "Testing: file ops, search, shell execution",
			Groups: []domain.GroupID{catalog.GroupFileOps, catalog.GroupSearch, catalog.GroupSystem}},
		{Name: Generator, Aliases: []string{"gen"}, Description: "Task execution: file ops, search, git, shell",
			Groups: []domain.GroupID{catalog.GroupFileOps, catalog.GroupSearch, catalog.GroupGit, catalog.GroupSystem}},
		{Name: Reflector, Aliases: []string{"reflect"}, Description: "Analysis: file reading, git history",
			Groups: []domain.GroupID{catalog.GroupFileOps, catalog.GroupGit}},
		{Name: Curator, Aliases: []string{"curate"}, Description: "Playbook management: file ops, search",
			Groups: []domain.GroupID{catalog.GroupFileOps, catalog.GroupSearch}},
		{Name: Docs, Aliases: []string{"documentation"}, Description: "Documentation: file ops, filesystem, search, reference",
			Groups: []domain.GroupID{catalog.GroupFileOps, catalog.GroupFilesystem, catalog.GroupSearch, catalog.GroupReference}},
		{Name: Lint, Aliases: []string{"linter"}, Description: "Linting: search, shell execution, file editing",
			Groups: []domain.GroupID{catalog.GroupSearch, catalog.GroupSystem, catalog.GroupFileOps}},
		{Name: API, Description: "API work: network, text processing, file ops",
			Groups: []domain.GroupID{catalog.GroupNetwork, catalog.GroupText, catalog.GroupFileOps}},
		{Name: DevDeploy, Aliases: []string{"devdeploy", "deploy"}, Description: "Deployment: kubernetes, containers, git, github workflows",
			Groups: []domain.GroupID{catalog.GroupKubernetes, catalog.GroupContainer, catalog.GroupGit, catalog.GroupGitHub, catalog.GroupSystem}},
		{Name: Full, Aliases: []string{"all"}, Description: "Full access: every group enabled",
			Groups: all},
		{Name: None, Description: "Nothing enabled; groups are expanded on demand",
			Groups: []domain.GroupID{}},
	}
}

// Lookup finds a profile by name or alias. Case and the choice of "-" or
// "_" do not matter.
func Lookup(name string) (domain.SessionProfile, error) {
	key := domain.NormalizeName(name)
	for _, p := range Profiles() {
		if domain.NormalizeName(string(p.Name)) == key {
			return p, nil
		}
		if slices.ContainsFunc(p.Aliases, func(alias string) bool { return domain.NormalizeName(alias) == key }) {
			return p, nil
		}
	}
	return domain.SessionProfile{}, &domain.Error{
		Code:    domain.CodeUnknownProfile,
		Op:      "resolve profile",
		Message: fmt.Sprintf("unknown profile %q (available: %s)", name, strings.Join(Names(), ", ")),
		Meta:    map[string]string{"profile": name},
	}
}

// Resolve returns the groups a profile enables.
func Resolve(name string) (domain.VisibilitySet, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return domain.NewVisibilitySet(p.Groups...), nil
}

// Names lists profile names in display order.
func Names() []string {
	profiles := Profiles()
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, string(p.Name))
	}
	return out
}
