package catalog

import (
	"time"

	"clihub/internal/domain"
)

func gitProcedures() []Procedure {
	return []Procedure{
		{
			Name: "git_status", Group: GroupGit, Binary: "git", ReadOnly: true,
			Description: "Show the working tree status in porcelain form.",
			Base:        []string{"status", "--porcelain=v1", "--branch"},
			Params:      []Param{flagParam("untracked", "--untracked-files=all", "List every untracked file"), workdirParam()},
			Format:      domain.FormatLines,
		},
		{
			Name: "git_diff", Group: GroupGit, Binary: "git", ReadOnly: true,
			Description: "Show changes as a structured unified diff.",
			Base:        []string{"--no-pager", "diff", "--no-color", "--no-ext-diff"},
			Params: []Param{
				flagParam("staged", "--staged", "Diff staged changes"),
				intParam("context", "-U", "Context lines"),
				positionalParam("revision", "Commit or range to diff against", false),
				workdirParam(),
			},
			Format: domain.FormatUnifiedDiff,
		},
		{
			Name: "git_log", Group: GroupGit, Binary: "git", ReadOnly: true,
			Description: "Show commit history, one tab-separated commit per row.",
			Base:        []string{"--no-pager", "log", "--no-color", "--format=%H%x09%an%x09%aI%x09%s"},
			Params: []Param{
				defaulted(intParam("max_count", "--max-count=", "Number of commits"), 20),
				joinedParam("author", "--author=", "Filter by author"),
				joinedParam("since", "--since=", "Only commits after this date"),
				joinedParam("grep", "--grep=", "Filter by message"),
				positionalParam("revision", "Revision or range", false),
				workdirParam(),
			},
			Format: domain.FormatTSV,
		},
		{
			Name: "git_show", Group: GroupGit, Binary: "git", ReadOnly: true,
			Description: "Show a commit with its patch.",
			Base:        []string{"--no-pager", "show", "--no-color"},
			Params:      []Param{positionalParam("revision", "Commit to show", false), workdirParam()},
			Format:      domain.FormatUnifiedDiff,
		},
		{
			Name: "git_add", Group: GroupGit, Binary: "git",
			Description: "Stage files.",
			Base:        []string{"add"},
			Params: []Param{
				flagParam("all", "--all", "Stage all changes"),
				pathsParam("paths", "Paths to stage", false),
				workdirParam(),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "git_commit", Group: GroupGit, Binary: "git",
			Description: "Record staged changes.",
			Base:        []string{"commit"},
			Params: []Param{
				required(optionParam("message", "--message", "Commit message")),
				flagParam("all", "--all", "Stage tracked changes first"),
				flagParam("amend", "--amend", "Amend the previous commit"),
				workdirParam(),
			},
			Format: domain.FormatText,
		},
		{
			Name: "git_checkout", Group: GroupGit, Binary: "git",
			Description: "Switch branches, optionally creating one.",
			Base:        []string{"switch"},
			Params: []Param{
				flagParam("create", "--create", "Create the branch"),
				positionalParam("branch", "Branch to switch to", true),
				workdirParam(),
			},
			Format: domain.FormatText,
		},
		{
			Name: "git_branch", Group: GroupGit, Binary: "git", ReadOnly: true,
			Description: "List branches.",
			Base:        []string{"branch", "--no-color", "--format=%(refname:short)"},
			Params: []Param{
				flagParam("all", "--all", "Include remote branches"),
				workdirParam(),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "git_stash", Group: GroupGit, Binary: "git",
			Description: "Stash changes or manage the stash.",
			Base:        []string{"stash"},
			Params: []Param{
				defaulted(enumParam(positionalParam("action", "Stash action", false), "push", "pop", "list", "apply", "drop"), "push"),
				workdirParam(),
			},
			Format: domain.FormatText,
		},
	}
}

func githubProcedures() []Procedure {
	gh := func(name, description string, base []string, params ...Param) Procedure {
		return Procedure{
			Name: name, Group: GroupGitHub, Binary: "gh", Base: base, Auth: "github",
			Description: description, Params: append(params, workdirParam()),
			Format: domain.FormatJSON, Timeout: 60 * time.Second,
		}
	}
	repo := optionParam("repo", "--repo", "Repository as OWNER/NAME")
	limit := defaulted(intParam("limit", "--limit=", "Maximum results"), 30)
	state := enumParam(optionParam("state", "--state", "Filter by state"), "open", "closed", "merged", "all")
	return []Procedure{
		gh("gh_repo_view", "Show repository details.",
			[]string{"repo", "view", "--json", "name,owner,description,url,defaultBranchRef,stargazerCount,isPrivate"},
			positionalParam("repo", "Repository as OWNER/NAME", false)),
		gh("gh_issue_list", "List issues.",
			[]string{"issue", "list", "--json", "number,title,state,author,labels,updatedAt,url"},
			repo, limit, state, optionParam("label", "--label", "Filter by label"), optionParam("search", "--search", "Search query")),
		gh("gh_issue_view", "Show one issue with comments.",
			[]string{"issue", "view", "--json", "number,title,state,author,body,comments,labels,url"},
			repo, positionalParam("number", "Issue number or URL", true)),
		gh("gh_pr_list", "List pull requests.",
			[]string{"pr", "list", "--json", "number,title,state,author,headRefName,baseRefName,isDraft,url"},
			repo, limit, state, optionParam("base", "--base", "Filter by base branch")),
		gh("gh_pr_view", "Show one pull request.",
			[]string{"pr", "view", "--json", "number,title,state,author,body,files,reviews,statusCheckRollup,url"},
			repo, positionalParam("number", "Pull request number, branch or URL", false)),
		gh("gh_pr_checks", "Show CI checks for a pull request.",
			[]string{"pr", "checks", "--json", "name,state,bucket,link"},
			repo, positionalParam("number", "Pull request number, branch or URL", false)),
		gh("gh_search_code", "Search code across GitHub.",
			[]string{"search", "code", "--json", "path,repository,url,textMatches"},
			optionParam("repo", "--repo", "Restrict to a repository"), optionParam("language", "--language", "Filter by language"),
			limit, positionalParam("query", "Search query", true)),
		gh("gh_search_repos", "Search repositories.",
			[]string{"search", "repos", "--json", "fullName,description,stargazersCount,url"},
			limit, positionalParam("query", "Search query", true)),
		gh("gh_release_list", "List releases.",
			[]string{"release", "list", "--json", "name,tagName,isLatest,isDraft,publishedAt"},
			repo, limit),
		gh("gh_workflow_list", "List workflows.",
			[]string{"workflow", "list", "--json", "id,name,state,path"},
			repo),
		gh("gh_run_list", "List workflow runs.",
			[]string{"run", "list", "--json", "databaseId,workflowName,status,conclusion,headBranch,createdAt,url"},
			repo, limit, optionParam("workflow", "--workflow", "Filter by workflow"), optionParam("branch", "--branch", "Filter by branch")),
		gh("gh_api", "Call the GitHub REST API.",
			[]string{"api"},
			enumParam(optionParam("method", "--method", "HTTP method"), "GET", "POST", "PATCH", "PUT", "DELETE"),
			Param{Name: "fields", Kind: KindOption, Type: TypeArray, Flag: "--raw-field", Description: "key=value request fields"},
			flagParam("paginate", "--paginate", "Fetch every page"),
			positionalParam("endpoint", "API path such as repos/{owner}/{repo}/issues", true)),
	}
}

func gitlabProcedures() []Procedure {
	glab := func(name, description string, base []string, params ...Param) Procedure {
		return Procedure{
			Name: name, Group: GroupGitLab, Binary: "glab", Base: base, Auth: "gitlab",
			Description: description, Params: append(params, workdirParam()),
			Format: domain.FormatJSON, Timeout: 60 * time.Second, ReadOnly: true,
		}
	}
	repo := optionParam("repo", "--repo", "Project as GROUP/NAME")
	perPage := defaulted(intParam("per_page", "--per-page=", "Results per page"), 30)
	return []Procedure{
		glab("glab_issue_list", "List issues.", []string{"issue", "list", "--output", "json"},
			repo, perPage, flagParam("closed", "--closed", "Only closed issues"), optionParam("label", "--label", "Filter by label")),
		glab("glab_issue_view", "Show one issue.", []string{"issue", "view", "--output", "json"},
			repo, positionalParam("id", "Issue id", true)),
		glab("glab_mr_list", "List merge requests.", []string{"mr", "list", "--output", "json"},
			repo, perPage, flagParam("merged", "--merged", "Only merged requests")),
		glab("glab_mr_view", "Show one merge request.", []string{"mr", "view", "--output", "json"},
			repo, positionalParam("id", "Merge request id or branch", false)),
		glab("glab_pipeline_list", "List CI pipelines.", []string{"ci", "list", "--output", "json"},
			repo, perPage, optionParam("status", "--status", "Filter by status")),
	}
}

func textProcedures() []Procedure {
	return []Procedure{
		{
			Name: "text_jq", Group: GroupText, Binary: "jq", ReadOnly: true,
			Description: "Query JSON with jq. Input comes from a file or the input argument.",
			Params: []Param{
				flagParam("raw", "-r", "Print strings without quotes"),
				flagParam("compact", "-c", "One result per line"),
				flagParam("slurp", "-s", "Read all inputs into an array"),
				positionalParam("filter", "jq filter", true),
				pathParam("file", "JSON file", false),
				stdinParam("input", "JSON document", false),
			},
			Format: domain.FormatJSONLines,
		},
		{
			Name: "text_yq", Group: GroupText, Binary: "yq", ReadOnly: true,
			Description: "Query YAML, JSON or TOML with yq. Output is JSON.",
			Base:        []string{"--output-format=json", "--indent=0"},
			Params: []Param{
				enumParam(joinedParam("input_format", "--input-format=", "Input format"), "yaml", "json", "toml", "xml"),
				positionalParam("expression", "yq expression", true),
				pathParam("file", "Input file", false),
				stdinParam("input", "Input document", false),
			},
			Format: domain.FormatJSONLines,
		},
		{
			Name: "text_dasel", Group: GroupText, Binary: "dasel", ReadOnly: true,
			Description: "Select values from JSON, YAML, TOML or CSV with dasel.",
			Base:        []string{"--write", "json"},
			Params: []Param{
				enumParam(optionParam("read", "--read", "Input format"), "json", "yaml", "toml", "csv", "xml"),
				optionParam("file", "--file", "Input file"),
				stdinParam("input", "Input document", false),
				positionalParam("selector", "dasel selector", false),
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "text_htmlq", Group: GroupText, Binary: "htmlq", ReadOnly: true,
			Description: "Extract HTML fragments with a CSS selector.",
			Params: []Param{
				flagParam("text", "--text", "Output text content only"),
				optionParam("attribute", "--attribute", "Output this attribute of each match"),
				stdinParam("html", "HTML document", true),
				positionalParam("selector", "CSS selector", true),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "text_pup", Group: GroupText, Binary: "pup", ReadOnly: true,
			Description: "Parse HTML with pup and return matches as JSON.",
			Params: []Param{
				stdinParam("html", "HTML document", true),
				{Name: "selector", Kind: KindPositional, Type: TypeString, Required: true, Description: "CSS selector"},
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "text_replace", Group: GroupText, Binary: "sd", ReadOnly: true,
			Description: "Find and replace in text passed on stdin with sd.",
			Params: []Param{
				flagParam("literal", "-F", "Treat find as a literal string"),
				positionalParam("find", "Regex or literal to find", true),
				positionalParam("replace", "Replacement text", true),
				stdinParam("input", "Text to transform", true),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "text_gron", Group: GroupText, Binary: "gron", ReadOnly: true,
			Description: "Flatten JSON into greppable assignments with gron.",
			Base:        []string{"--no-color"},
			Params: []Param{
				flagParam("ungron", "--ungron", "Reverse the transformation"),
				pathParam("file", "JSON file", false),
				stdinParam("input", "JSON document", false),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "text_miller", Group: GroupText, Binary: "mlr", ReadOnly: true,
			Description: "Run a Miller verb chain over CSV or TSV input and emit JSON.",
			Base:        []string{"--ojson"},
			Params: []Param{
				defaulted(enumParam(joinedParam("input_format", "--i", "Input format"), "csv", "tsv", "json"), "csv"),
				{Name: "verbs", Kind: KindPositional, Type: TypeArray, Required: true, Description: "Verb chain such as [\"sort\", \"-f\", \"name\"]"},
				pathParam("file", "Input file", false),
				stdinParam("input", "Input document", false),
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "text_xsv", Group: GroupText, Binary: "xsv", ReadOnly: true,
			Description: "Slice and summarize CSV with xsv.",
			Params: []Param{
				enumParam(positionalParam("command", "xsv subcommand", true), "headers", "count", "select", "search", "sort", "stats", "slice", "frequency"),
				{Name: "args", Kind: KindPositional, Type: TypeArray, Description: "Subcommand arguments"},
				pathParam("file", "CSV file", false),
				stdinParam("input", "CSV document", false),
			},
			Format: domain.FormatCSV,
		},
		{
			Name: "text_hck", Group: GroupText, Binary: "hck", ReadOnly: true,
			Description: "Select columns from delimited text with hck.",
			Params: []Param{
				optionParam("fields", "-f", "Field list such as 1,3-5"),
				optionParam("delimiter", "-d", "Input delimiter regex"),
				stdinParam("input", "Text to cut", true),
			},
			Format: domain.FormatTSV,
		},
	}
}
