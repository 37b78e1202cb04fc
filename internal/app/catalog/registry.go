package catalog

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"clihub/internal/domain"
)

// Meta-operations are served by the server and visible in every session.
const (
	MetaGroupsList   = "groups_list"
	MetaGroupExpand  = "group_expand"
	MetaGroupEnable  = "group_enable"
	MetaGroupDisable = "group_disable"
)

var metaOperations = []string{MetaGroupsList, MetaGroupExpand, MetaGroupEnable, MetaGroupDisable}

// MetaOperations lists the always-visible meta-operation names.
func MetaOperations() []string {
	return slices.Clone(metaOperations)
}

// IsMetaOperation reports whether name is an always-visible meta-operation.
func IsMetaOperation(name string) bool {
	return slices.Contains(metaOperations, name)
}

// Registry is the immutable procedure catalog. It is safe for concurrent
// use.
type Registry struct {
	groups   []domain.ToolGroup
	groupIdx map[domain.GroupID]int
	aliases  map[string]domain.GroupID
	procs    []Procedure
	procIdx  map[string]int
	schemas  map[string]*jsonschema.Schema
	resolved map[string]*jsonschema.Resolved
	auth     map[string]AuthService
}

// Default builds the registry of built-in groups and procedures.
func Default() (*Registry, error) {
	return NewRegistry(DefaultGroups(), Builtins(), DefaultAuthServices())
}

// NewRegistry validates the catalog: procedure names are unique and not
// reserved, every procedure belongs to a declared group, every group has
// members and every input schema resolves.
func NewRegistry(groups []GroupSpec, procs []Procedure, auth []AuthService) (*Registry, error) {
	r := &Registry{
		groupIdx: make(map[domain.GroupID]int, len(groups)),
		aliases:  make(map[string]domain.GroupID),
		procIdx:  make(map[string]int, len(procs)),
		schemas:  make(map[string]*jsonschema.Schema, len(procs)),
		resolved: make(map[string]*jsonschema.Resolved, len(procs)),
		auth:     make(map[string]AuthService, len(auth)),
	}
	var errs []error
	for _, spec := range groups {
		if spec.ID == "" {
			errs = append(errs, errors.New("group id is required"))
			continue
		}
		if _, ok := r.groupIdx[spec.ID]; ok {
			errs = append(errs, fmt.Errorf("duplicate group %q", spec.ID))
			continue
		}
		r.groupIdx[spec.ID] = len(r.groups)
		r.groups = append(r.groups, domain.ToolGroup{
			ID:          spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Aliases:     slices.Clone(spec.Aliases),
		})
		for _, name := range append([]string{string(spec.ID)}, spec.Aliases...) {
			key := domain.NormalizeName(name)
			if owner, ok := r.aliases[key]; ok && owner != spec.ID {
				errs = append(errs, fmt.Errorf("alias %q used by %q and %q", name, owner, spec.ID))
				continue
			}
			r.aliases[key] = spec.ID
		}
	}
	for _, svc := range auth {
		if svc.Name == "" || svc.Binary == "" {
			errs = append(errs, fmt.Errorf("auth service %q needs a name and binary", svc.Name))
			continue
		}
		r.auth[svc.Name] = svc
	}
	for _, proc := range procs {
		switch {
		case proc.Name == "":
			errs = append(errs, errors.New("procedure name is required"))
			continue
		case IsMetaOperation(proc.Name):
			errs = append(errs, fmt.Errorf("procedure %q shadows a meta-operation", proc.Name))
			continue
		}
		if _, ok := r.procIdx[proc.Name]; ok {
			errs = append(errs, fmt.Errorf("duplicate procedure %q", proc.Name))
			continue
		}
		idx, ok := r.groupIdx[proc.Group]
		if !ok {
			errs = append(errs, fmt.Errorf("procedure %q: unknown group %q", proc.Name, proc.Group))
			continue
		}
		if proc.Auth != "" {
			if _, ok := r.auth[proc.Auth]; !ok {
				errs = append(errs, fmt.Errorf("procedure %q: unknown auth service %q", proc.Name, proc.Auth))
				continue
			}
		}
		if !proc.Builtin() && proc.Format == "" {
			proc.Format = domain.FormatText
		}
		schema, err := InputSchema(proc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("procedure %q: resolve schema: %w", proc.Name, err))
			continue
		}
		r.procIdx[proc.Name] = len(r.procs)
		r.procs = append(r.procs, proc)
		r.schemas[proc.Name] = schema
		r.resolved[proc.Name] = resolved
		r.groups[idx].Members = append(r.groups[idx].Members, proc.Name)
	}
	for _, group := range r.groups {
		if len(group.Members) == 0 {
			errs = append(errs, fmt.Errorf("group %q has no procedures", group.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return r, nil
}

// Groups yields every group in declaration order. Members are copies.
func (r *Registry) Groups() iter.Seq[domain.ToolGroup] {
	return func(yield func(domain.ToolGroup) bool) {
		for _, group := range r.groups {
			if !yield(cloneGroup(group)) {
				return
			}
		}
	}
}

// AllGroups returns every group id in declaration order.
func (r *Registry) AllGroups() []domain.GroupID {
	out := make([]domain.GroupID, 0, len(r.groups))
	for _, group := range r.groups {
		out = append(out, group.ID)
	}
	return out
}

// Group returns the group with id.
func (r *Registry) Group(id domain.GroupID) (domain.ToolGroup, error) {
	idx, ok := r.groupIdx[id]
	if !ok {
		return domain.ToolGroup{}, unknownGroup("lookup group", string(id))
	}
	return cloneGroup(r.groups[idx]), nil
}

// HasGroup reports whether id names a group.
func (r *Registry) HasGroup(id domain.GroupID) bool {
	_, ok := r.groupIdx[id]
	return ok
}

// ResolveGroup maps a user-supplied id or alias to a group id.
func (r *Registry) ResolveGroup(name string) (domain.GroupID, error) {
	id, ok := r.aliases[domain.NormalizeName(name)]
	if !ok {
		return "", unknownGroup("resolve group", name)
	}
	return id, nil
}

// GroupMembers lists the procedures of a group in declaration order.
func (r *Registry) GroupMembers(id domain.GroupID) ([]string, error) {
	idx, ok := r.groupIdx[id]
	if !ok {
		return nil, unknownGroup("group members", string(id))
	}
	return slices.Clone(r.groups[idx].Members), nil
}

// GroupOf returns the owning group of a procedure.
func (r *Registry) GroupOf(name string) (domain.GroupID, bool) {
	idx, ok := r.procIdx[name]
	if !ok {
		return "", false
	}
	return r.procs[idx].Group, true
}

// Procedure looks up a procedure by name.
func (r *Registry) Procedure(name string) (Procedure, bool) {
	idx, ok := r.procIdx[name]
	if !ok {
		return Procedure{}, false
	}
	return r.procs[idx], true
}

// Procedures yields every procedure in declaration order.
func (r *Registry) Procedures() iter.Seq[Procedure] {
	return slices.Values(r.procs)
}

// Len returns the number of procedures.
func (r *Registry) Len() int {
	return len(r.procs)
}

// InputSchema returns the derived input schema of a procedure. The result
// must not be modified.
func (r *Registry) InputSchema(name string) (*jsonschema.Schema, bool) {
	schema, ok := r.schemas[name]
	return schema, ok
}

// ValidateArgs checks arguments against the procedure's input schema.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	const op = "validate arguments"
	resolved, ok := r.resolved[name]
	if !ok {
		return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("unknown procedure %q", name), domain.ErrUnknownProcedure)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := resolved.Validate(args); err != nil {
		return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("%s: %v", name, err), nil)
	}
	return nil
}

// BuildCall validates arguments and builds the execution request of a
// subprocess procedure.
func (r *Registry) BuildCall(name string, args map[string]any) (Procedure, Call, error) {
	proc, ok := r.Procedure(name)
	if !ok {
		return Procedure{}, Call{}, domain.E(domain.CodeInvalidRequest, "build call", fmt.Sprintf("unknown procedure %q", name), domain.ErrUnknownProcedure)
	}
	if err := r.ValidateArgs(name, args); err != nil {
		return proc, Call{}, err
	}
	call, err := BuildCall(proc, args)
	return proc, call, err
}

// AuthService returns the login probe of a service.
func (r *Registry) AuthService(name string) (AuthService, bool) {
	svc, ok := r.auth[name]
	return svc, ok
}

// AuthServices lists the configured login probes sorted by name.
func (r *Registry) AuthServices() []AuthService {
	out := make([]AuthService, 0, len(r.auth))
	for _, svc := range r.auth {
		out = append(out, svc)
	}
	slices.SortFunc(out, func(a, b AuthService) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func cloneGroup(group domain.ToolGroup) domain.ToolGroup {
	group.Aliases = slices.Clone(group.Aliases)
	group.Members = slices.Clone(group.Members)
	return group
}

func unknownGroup(op, name string) error {
	return &domain.Error{
		Code:    domain.CodeUnknownGroup,
		Op:      op,
		Message: fmt.Sprintf("unknown group %q", name),
		Meta:    map[string]string{"group": name},
	}
}
