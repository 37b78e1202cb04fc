package catalog

import (
	"time"

	"clihub/internal/domain"
)

const (
	GroupFilesystem domain.GroupID = "filesystem"
	GroupFileOps    domain.GroupID = "file_ops"
	GroupSearch     domain.GroupID = "search"
	GroupText       domain.GroupID = "text"
	GroupGit        domain.GroupID = "git"
	GroupGitHub     domain.GroupID = "github"
	GroupGitLab     domain.GroupID = "gitlab"
	GroupKubernetes domain.GroupID = "kubernetes"
	GroupContainer  domain.GroupID = "container"
	GroupNetwork    domain.GroupID = "network"
	GroupSystem     domain.GroupID = "system"
	GroupArchive    domain.GroupID = "archive"
	GroupReference  domain.GroupID = "reference"
	GroupDiff       domain.GroupID = "diff"
	GroupState      domain.GroupID = "state"
)

// GroupSpec is a group before its members are attached.
type GroupSpec struct {
	ID          domain.GroupID
	Name        string
	Description string
	Aliases     []string
}

// DefaultGroups lists every group in display order.
func DefaultGroups() []GroupSpec {
	return []GroupSpec{
		{ID: GroupFilesystem, Name: "Filesystem", Aliases: []string{"fs"},
			Description: "List directories (eza), view files (bat), find files (fd), disk usage (duf, dust), trash, copy, move, mkdir, stat"},
		{ID: GroupFileOps, Name: "File Operations", Aliases: []string{"file", "files"},
			Description: "Read, write, edit, append and patch files"},
		{ID: GroupSearch, Name: "Search & Code Analysis",
			Description: "Content search (ripgrep), fuzzy filtering (fzf), structural code search (ast-grep)"},
		{ID: GroupText, Name: "Text Processing",
			Description: "JSON (jq, gron), YAML (yq), HTML (htmlq, pup), CSV (xsv, miller), find and replace (sd)"},
		{ID: GroupGit, Name: "Git Version Control",
			Description: "Status, diff, log, add, commit, checkout, branch and stash"},
		{ID: GroupGitHub, Name: "GitHub", Aliases: []string{"gh"},
			Description: "Repositories, issues, pull requests, releases, workflows and API calls via gh"},
		{ID: GroupGitLab, Name: "GitLab", Aliases: []string{"gl"},
			Description: "Issues, merge requests and pipelines via glab"},
		{ID: GroupKubernetes, Name: "Kubernetes & Helm", Aliases: []string{"k8s", "kube"},
			Description: "kubectl get, describe, logs, apply, delete; Helm releases; Kustomize builds; multi-pod logs (stern)"},
		{ID: GroupContainer, Name: "Container & Registry", Aliases: []string{"docker", "podman"},
			Description: "Podman containers and images, compose, registry inspection (skopeo, crane), image scanning (trivy)"},
		{ID: GroupNetwork, Name: "Network & Database", Aliases: []string{"net", "http"},
			Description: "HTTP requests (xh), DNS lookups (dig), SQL queries (usql)"},
		{ID: GroupSystem, Name: "System & Shell", Aliases: []string{"sys", "shell"},
			Description: "Shell execution, process listing, benchmarking (hyperfine), system info, shell tests (bats), code stats (tokei)"},
		{ID: GroupArchive, Name: "Archive & Compression", Aliases: []string{"compress", "zip"},
			Description: "Compress, decompress and list archives (ouch)"},
		{ID: GroupReference, Name: "Reference & Docs", Aliases: []string{"ref", "docs"},
			Description: "Command help (tldr), cheatsheets (navi), regex generation (grex)"},
		{ID: GroupDiff, Name: "Diff & Comparison",
			Description: "Unified file diffs and structural diffs (difftastic)"},
		{ID: GroupState, Name: "Session State", Aliases: []string{"mcp"},
			Description: "Task tracking, scoped context storage, result cache and auth status"},
	}
}

// DefaultAuthServices are the login probes for Auth-gated procedures.
func DefaultAuthServices() []AuthService {
	return []AuthService{
		{Name: "github", Binary: "gh", Args: []string{"auth", "status"}, Hint: "run `gh auth login`", MaxAge: 10 * time.Minute, Timeout: 15 * time.Second},
		{Name: "gitlab", Binary: "glab", Args: []string{"auth", "status"}, Hint: "run `glab auth login`", MaxAge: 10 * time.Minute, Timeout: 15 * time.Second},
	}
}
