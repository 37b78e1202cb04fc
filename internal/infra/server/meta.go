package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
	"clihub/internal/infra/telemetry"
)

type groupsListInput struct{}

type groupExpandInput struct {
	Group string `json:"group" jsonschema:"group id or alias, such as git or k8s"`
}

type groupToggleInput struct {
	Group  string   `json:"group,omitempty" jsonschema:"group id or alias"`
	Groups []string `json:"groups,omitempty" jsonschema:"several group ids or aliases"`
}

type groupSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
	Tools       int      `json:"tools"`
	Enabled     bool     `json:"enabled"`
}

type toolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
	Binary      string `json:"binary,omitempty"`
}

type groupDetail struct {
	groupSummary
	Members []toolSummary `json:"members"`
}

type toggleOutput struct {
	Changed []string `json:"changed"`
	Enabled []string `json:"enabled"`
}

func (s *Session) registerMetaTools() {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        catalog.MetaGroupsList,
		Description: "List tool groups with their size and whether they are enabled in this session.",
		Annotations: readOnly,
	}, s.handleGroupsList)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        catalog.MetaGroupExpand,
		Description: "Describe the tools of one group without enabling it.",
		Annotations: readOnly,
	}, s.handleGroupExpand)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        catalog.MetaGroupEnable,
		Description: "Enable groups so their tools are listed and callable.",
	}, s.handleGroupEnable)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        catalog.MetaGroupDisable,
		Description: "Disable groups to hide their tools.",
	}, s.handleGroupDisable)
}

func (s *Session) handleGroupsList(_ context.Context, _ *mcp.CallToolRequest, _ groupsListInput) (*mcp.CallToolResult, any, error) {
	var groups []groupSummary
	for group := range s.hub.registry.Groups() {
		groups = append(groups, s.summary(group))
	}
	out := map[string]any{
		"groups":  groups,
		"enabled": groupStrings(s.visibility.Snapshot()),
	}
	s.hub.metrics.ObserveProcedureCall(catalog.MetaGroupsList, nil)
	return dataResult(out), nil, nil
}

func (s *Session) handleGroupExpand(_ context.Context, _ *mcp.CallToolRequest, in groupExpandInput) (*mcp.CallToolResult, any, error) {
	id, err := s.hub.registry.ResolveGroup(in.Group)
	s.hub.metrics.ObserveProcedureCall(catalog.MetaGroupExpand, err)
	if err != nil {
		return errorResult(err), nil, nil
	}
	group, err := s.hub.registry.Group(id)
	if err != nil {
		return errorResult(err), nil, nil
	}
	detail := groupDetail{groupSummary: s.summary(group)}
	for _, name := range group.Members {
		proc, _ := s.hub.registry.Procedure(name)
		detail.Members = append(detail.Members, toolSummary{
			Name:        proc.Name,
			Description: proc.Description,
			ReadOnly:    proc.ReadOnly,
			Binary:      proc.Binary,
		})
	}
	return dataResult(detail), nil, nil
}

func (s *Session) handleGroupEnable(_ context.Context, _ *mcp.CallToolRequest, in groupToggleInput) (*mcp.CallToolResult, any, error) {
	return s.toggle(catalog.MetaGroupEnable, in, s.visibility.Enable), nil, nil
}

func (s *Session) handleGroupDisable(_ context.Context, _ *mcp.CallToolRequest, in groupToggleInput) (*mcp.CallToolResult, any, error) {
	return s.toggle(catalog.MetaGroupDisable, in, s.visibility.Disable), nil, nil
}

// toggle resolves every name before mutating so a bad name changes nothing.
func (s *Session) toggle(op string, in groupToggleInput, apply func(domain.GroupID) (bool, error)) *mcp.CallToolResult {
	names := append([]string(nil), in.Groups...)
	if strings.TrimSpace(in.Group) != "" {
		names = append([]string{in.Group}, names...)
	}
	if len(names) == 0 {
		err := domain.E(domain.CodeInvalidRequest, op, "group or groups is required", nil)
		s.hub.metrics.ObserveProcedureCall(op, err)
		return errorResult(err)
	}
	ids := make([]domain.GroupID, 0, len(names))
	for _, name := range names {
		id, err := s.hub.registry.ResolveGroup(name)
		if err != nil {
			s.hub.metrics.ObserveProcedureCall(op, err)
			return errorResult(err)
		}
		ids = append(ids, id)
	}
	out := toggleOutput{Changed: []string{}}
	for _, id := range domain.NewVisibilitySet(ids...) {
		changed, err := apply(id)
		if err != nil {
			s.hub.metrics.ObserveProcedureCall(op, err)
			return errorResult(err)
		}
		if changed {
			out.Changed = append(out.Changed, string(id))
			s.logger.Info(fmt.Sprintf("%s %s", op, id), telemetry.GroupField(string(id)))
		}
	}
	out.Enabled = groupStrings(s.visibility.Snapshot())
	s.hub.metrics.ObserveProcedureCall(op, nil)
	s.logger.Debug("visibility updated", zap.Strings("enabled", out.Enabled))
	return dataResult(out)
}

func (s *Session) summary(group domain.ToolGroup) groupSummary {
	return groupSummary{
		ID:          string(group.ID),
		Name:        group.Name,
		Description: group.Description,
		Aliases:     group.Aliases,
		Tools:       len(group.Members),
		Enabled:     s.visibility.IsEnabled(group.ID),
	}
}
