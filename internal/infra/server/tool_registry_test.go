package server

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

func noopHandler(string) mcp.ToolHandler {
	return func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{}, nil
	}
}

func TestToolRegistry_ApplyAddsAndRemoves(t *testing.T) {
	reg, err := catalog.Default()
	require.NoError(t, err)
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, &mcp.ServerOptions{HasTools: true})
	tools := newToolRegistry(server, reg, noopHandler, nil)

	tools.Apply(domain.VisibilitySet{catalog.GroupGit, catalog.GroupDiff})
	gitMembers, err := reg.GroupMembers(catalog.GroupGit)
	require.NoError(t, err)
	for _, name := range gitMembers {
		assert.True(t, tools.Registered(name), name)
	}
	assert.True(t, tools.Registered("diff_files"))
	assert.False(t, tools.Registered("search_content"))

	tools.Apply(domain.VisibilitySet{catalog.GroupDiff})
	for _, name := range gitMembers {
		assert.False(t, tools.Registered(name), name)
	}
	assert.True(t, tools.Registered("diff_files"))

	tools.Apply(nil)
	assert.False(t, tools.Registered("diff_files"))
}

func TestToolRegistry_SkipsUnknownGroup(t *testing.T) {
	reg, err := catalog.Default()
	require.NoError(t, err)
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, &mcp.ServerOptions{HasTools: true})
	tools := newToolRegistry(server, reg, noopHandler, nil)

	tools.Apply(domain.VisibilitySet{"bogus", catalog.GroupArchive})
	assert.True(t, tools.Registered("archive_list"))
}
