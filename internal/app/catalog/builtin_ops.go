package catalog

import (
	"time"

	"clihub/internal/domain"
)

func kubernetesProcedures() []Procedure {
	namespace := optionParam("namespace", "--namespace", "Namespace")
	kubeContext := optionParam("context", "--context", "Kubeconfig context")
	return []Procedure{
		{
			Name: "kubectl_get", Group: GroupKubernetes, Binary: "kubectl", ReadOnly: true,
			Description: "Get Kubernetes resources as JSON.",
			Base:        []string{"get", "--output=json"},
			Params: []Param{
				namespace, kubeContext,
				flagParam("all_namespaces", "--all-namespaces", "List across all namespaces"),
				optionParam("selector", "--selector", "Label selector"),
				positionalParam("resource", "Resource type such as pods or deploy", true),
				positionalParam("name", "Resource name", false),
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "kubectl_describe", Group: GroupKubernetes, Binary: "kubectl", ReadOnly: true,
			Description: "Describe Kubernetes resources.",
			Base:        []string{"describe"},
			Params: []Param{
				namespace, kubeContext,
				positionalParam("resource", "Resource type", true),
				positionalParam("name", "Resource name", false),
			},
			Format: domain.FormatText,
		},
		{
			Name: "kubectl_logs", Group: GroupKubernetes, Binary: "kubectl", ReadOnly: true,
			Description: "Fetch container logs.",
			Base:        []string{"logs"},
			Params: []Param{
				namespace, kubeContext,
				optionParam("container", "--container", "Container name"),
				defaulted(intParam("tail", "--tail=", "Lines from the end"), 200),
				joinedParam("since", "--since=", "Only logs newer than a duration such as 10m"),
				flagParam("previous", "--previous", "Logs of the previous instance"),
				positionalParam("pod", "Pod or TYPE/NAME", true),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "kubectl_apply", Group: GroupKubernetes, Binary: "kubectl",
			Description: "Apply a manifest passed as input.",
			Base:        []string{"apply", "--output=json", "--filename=-"},
			Params: []Param{
				namespace, kubeContext,
				enumParam(joinedParam("dry_run", "--dry-run=", "Dry run mode"), "none", "client", "server"),
				stdinParam("manifest", "YAML or JSON manifest", true),
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "kubectl_delete", Group: GroupKubernetes, Binary: "kubectl",
			Description: "Delete Kubernetes resources.",
			Base:        []string{"delete", "--wait=false"},
			Params: []Param{
				namespace, kubeContext,
				enumParam(joinedParam("dry_run", "--dry-run=", "Dry run mode"), "none", "client", "server"),
				positionalParam("resource", "Resource type", true),
				positionalParam("name", "Resource name", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "helm_list", Group: GroupKubernetes, Binary: "helm", ReadOnly: true,
			Description: "List Helm releases.",
			Base:        []string{"list", "--output", "json"},
			Params: []Param{
				namespace, kubeContext,
				flagParam("all_namespaces", "--all-namespaces", "List across all namespaces"),
			},
			Format: domain.FormatJSON,
		},
		{
			Name: "helm_status", Group: GroupKubernetes, Binary: "helm", ReadOnly: true,
			Description: "Show a Helm release status.",
			Base:        []string{"status", "--output", "json"},
			Params:      []Param{namespace, kubeContext, positionalParam("release", "Release name", true)},
			Format:      domain.FormatJSON,
		},
		{
			Name: "helm_template", Group: GroupKubernetes, Binary: "helm", ReadOnly: true,
			Description: "Render chart templates locally.",
			Base:        []string{"template"},
			Params: []Param{
				namespace,
				{Name: "values", Kind: KindOption, Type: TypeArray, Flag: "--values", Description: "Values files"},
				{Name: "set", Kind: KindOption, Type: TypeArray, Flag: "--set", Description: "key=value overrides"},
				positionalParam("release", "Release name", true),
				pathParam("chart", "Chart path", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "kustomize_build", Group: GroupKubernetes, Binary: "kustomize", ReadOnly: true,
			Description: "Build a kustomization and return the manifests.",
			Base:        []string{"build"},
			Params:      []Param{pathParam("path", "Kustomization directory", false)},
			Format:      domain.FormatYAML,
		},
		{
			Name: "stern_logs", Group: GroupKubernetes, Binary: "stern", ReadOnly: true,
			Description: "Collect logs across pods matching a query for a bounded window.",
			Base:        []string{"--no-follow", "--color=never", "--output=raw"},
			Params: []Param{
				namespace, kubeContext,
				defaulted(joinedParam("since", "--since=", "Window such as 5m"), "5m"),
				optionParam("container", "--container", "Container regex"),
				positionalParam("query", "Pod regex", true),
			},
			Format: domain.FormatLines, Timeout: 60 * time.Second,
		},
	}
}

func containerProcedures() []Procedure {
	return []Procedure{
		{
			Name: "podman_ps", Group: GroupContainer, Binary: "podman", ReadOnly: true,
			Description: "List containers.",
			Base:        []string{"ps", "--format", "json"},
			Params:      []Param{flagParam("all", "--all", "Include stopped containers")},
			Format:      domain.FormatJSON,
		},
		{
			Name: "podman_images", Group: GroupContainer, Binary: "podman", ReadOnly: true,
			Description: "List local images.",
			Base:        []string{"images", "--format", "json"},
			Format:      domain.FormatJSON,
		},
		{
			Name: "podman_logs", Group: GroupContainer, Binary: "podman", ReadOnly: true,
			Description: "Fetch container logs.",
			Base:        []string{"logs"},
			Params: []Param{
				defaulted(intParam("tail", "--tail=", "Lines from the end"), 200),
				positionalParam("container", "Container name or id", true),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "compose", Group: GroupContainer, Binary: "podman",
			Description: "Run a compose command (ps, up -d, down, logs).",
			Base:        []string{"compose"},
			Params: []Param{
				optionParam("file", "--file", "Compose file"),
				{Name: "command", Kind: KindPositional, Type: TypeArray, Required: true, Description: "Compose subcommand and arguments"},
				workdirParam(),
			},
			Format: domain.FormatText, Timeout: 5 * time.Minute,
		},
		{
			Name: "skopeo_inspect", Group: GroupContainer, Binary: "skopeo", ReadOnly: true,
			Description: "Inspect a remote image without pulling it.",
			Base:        []string{"inspect"},
			Params:      []Param{positionalParam("image", "Transport and reference such as docker://alpine:3", true)},
			Format:      domain.FormatJSON, CacheTTL: domain.UseDefaultCacheTTL,
		},
		{
			Name: "crane_ls", Group: GroupContainer, Binary: "crane", ReadOnly: true,
			Description: "List tags of a repository.",
			Base:        []string{"ls"},
			Params:      []Param{positionalParam("repository", "Repository such as ghcr.io/org/app", true)},
			Format:      domain.FormatLines, CacheTTL: domain.UseDefaultCacheTTL,
		},
		{
			Name: "crane_digest", Group: GroupContainer, Binary: "crane", ReadOnly: true,
			Description: "Resolve an image reference to its digest.",
			Base:        []string{"digest"},
			Params:      []Param{positionalParam("image", "Image reference", true)},
			Format:      domain.FormatText,
		},
		{
			Name: "dive_analyze", Group: GroupContainer, Binary: "dive", ReadOnly: true,
			Description: "Report image layer efficiency with dive.",
			Base:        []string{"--ci"},
			Params:      []Param{positionalParam("image", "Image reference", true)},
			Format:      domain.FormatText, Timeout: 5 * time.Minute,
		},
		{
			Name: "trivy_scan", Group: GroupContainer, Binary: "trivy", ReadOnly: true,
			Description: "Scan an image or filesystem for vulnerabilities.",
			Base:        []string{"--quiet", "--format", "json"},
			Params: []Param{
				defaulted(enumParam(positionalParam("target", "Scan target kind", false), "image", "fs", "repo", "config"), "image"),
				optionParam("severity", "--severity", "Comma-separated severities"),
				positionalParam("subject", "Image reference or path", true),
			},
			Format: domain.FormatJSON, Timeout: 10 * time.Minute,
		},
	}
}

func networkProcedures() []Procedure {
	return []Procedure{
		{
			Name: "http_request", Group: GroupNetwork, Binary: "xh",
			Description: "Send an HTTP request with xh. Body items use xh syntax (key=value, key:=json, Header:value).",
			Base:        []string{"--ignore-stdin", "--pretty=none"},
			Params: []Param{
				flagParam("headers_only", "--headers", "Print only response headers"),
				flagParam("follow", "--follow", "Follow redirects"),
				defaulted(enumParam(positionalParam("method", "HTTP method", false), "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"), "GET"),
				positionalParam("url", "Request URL", true),
				{Name: "items", Kind: KindPositional, Type: TypeArray, Description: "Request items"},
			},
			Format: domain.FormatText, Timeout: 60 * time.Second,
		},
		{
			Name: "dns_lookup", Group: GroupNetwork, Binary: "dig", ReadOnly: true,
			Description: "Resolve DNS records.",
			Base:        []string{"+short"},
			Params: []Param{
				positionalParam("name", "Name to resolve", true),
				defaulted(enumParam(positionalParam("type", "Record type", false), "A", "AAAA", "CNAME", "MX", "NS", "TXT", "SRV", "SOA"), "A"),
			},
			Format: domain.FormatLines,
		},
		{
			Name: "sql_query", Group: GroupNetwork, Binary: "usql",
			Description: "Run SQL against a database URL with usql and return CSV rows.",
			Base:        []string{"--csv", "--quiet"},
			Params: []Param{
				required(optionParam("command", "--command", "SQL to run")),
				positionalParam("url", "Database URL such as postgres://user@host/db", true),
			},
			Format: domain.FormatCSV, Timeout: 60 * time.Second,
		},
	}
}

func systemProcedures() []Procedure {
	return []Procedure{
		{
			Name: "shell_exec", Group: GroupSystem, Binary: "sh",
			Description: "Run a shell command line.",
			Base:        []string{"-c"},
			Params: []Param{
				positionalParam("command", "Command line to run", true),
				stdinParam("input", "Standard input", false),
				workdirParam(),
			},
			Format: domain.FormatText,
		},
		{
			Name: "process_list", Group: GroupSystem, Binary: "ps", ReadOnly: true,
			Description: "List running processes as rows.",
			Base:        []string{"-eo", "pid,ppid,user,%cpu,%mem,etime,comm"},
			Hints:       map[string]string{domain.HintLayout: domain.LayoutAligned},
			Format:      domain.FormatColumns,
		},
		{
			Name: "benchmark", Group: GroupSystem, Binary: "hyperfine",
			Description: "Benchmark commands with hyperfine and return the JSON report.",
			Base:        []string{"--style=none", "--export-json=/dev/stdout"},
			Params: []Param{
				defaulted(intParam("runs", "--runs=", "Runs per command"), 10),
				intParam("warmup", "--warmup=", "Warmup runs"),
				{Name: "commands", Kind: KindPositional, Type: TypeArray, Required: true, Description: "Commands to compare"},
				workdirParam(),
			},
			Format: domain.FormatText, Timeout: 10 * time.Minute,
		},
		{
			Name: "system_info", Group: GroupSystem, Binary: "uname", ReadOnly: true,
			Description: "Show kernel and machine information.",
			Base:        []string{"-a"},
			Format:      domain.FormatText, CacheTTL: time.Hour,
		},
		{
			Name: "bats_test", Group: GroupSystem, Binary: "bats",
			Description: "Run Bats shell tests and return TAP output.",
			Base:        []string{"--tap"},
			Params:      []Param{pathsParam("paths", "Test files or directories", true), workdirParam()},
			Format:      domain.FormatLines, Timeout: 5 * time.Minute,
		},
		{
			Name: "code_stats", Group: GroupSystem, Binary: "tokei", ReadOnly: true,
			Description: "Count lines of code per language.",
			Base:        []string{"--output", "json"},
			Params: []Param{
				{Name: "exclude", Kind: KindOption, Type: TypeArray, Flag: "--exclude", Description: "Globs to exclude"},
				pathsParam("paths", "Directories to count", false),
			},
			Format: domain.FormatJSON, CacheTTL: domain.UseDefaultCacheTTL,
		},
	}
}

func referenceProcedures() []Procedure {
	return []Procedure{
		{
			Name: "tldr", Group: GroupReference, Binary: "tldr", ReadOnly: true,
			Description: "Show community examples for a command.",
			Base:        []string{"--raw"},
			Params:      []Param{positionalParam("command", "Command name", true)},
			Format:      domain.FormatText, CacheTTL: 24 * time.Hour,
		},
		{
			Name: "cheatsheet", Group: GroupReference, Binary: "navi", ReadOnly: true,
			Description: "Search navi cheatsheets for a command pattern.",
			Base:        []string{"--print", "--best-match"},
			Params:      []Param{required(optionParam("query", "--query", "What to search for"))},
			Format:      domain.FormatText,
		},
		{
			Name: "regex_from_examples", Group: GroupReference, Binary: "grex", ReadOnly: true,
			Description: "Generate a regular expression that matches every example.",
			Params: []Param{
				flagParam("digits", "--digits", "Convert digits to \\d"),
				flagParam("repetitions", "--repetitions", "Detect repeated substrings"),
				flagParam("ignore_case", "--ignore-case", "Case-insensitive matching"),
				{Name: "examples", Kind: KindPositional, Type: TypeArray, Required: true, Description: "Strings the regex must match"},
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
	}
}
