package catalog

import (
	"time"

	"clihub/internal/domain"
)

func filesystemProcedures() []Procedure {
	return []Procedure{
		{
			Name: "fs_list", Group: GroupFilesystem, Binary: "eza", ReadOnly: true,
			Description: "List directory contents with eza. Long format returns structured entries.",
			Base:        []string{"--color=never", "--icons=never"},
			Params: []Param{
				flagParam("all", "-a", "Show hidden files"),
				flagParam("long", "-l", "Long format with details"),
				flagParam("tree", "--tree", "Tree view"),
				intParam("level", "--level=", "Tree depth"),
				flagParam("git", "--git", "Show git status"),
				flagParam("dirs_only", "-D", "Only list directories"),
				enumParam(joinedParam("sort", "--sort=", "Sort field"), "name", "size", "modified", "extension", "type"),
				hinted(pathParam("path", "Directory to list", false), domain.HintPath),
			},
			Format: domain.FormatListing,
		},
		{
			Name: "fs_view", Group: GroupFilesystem, Binary: "bat", ReadOnly: true,
			Description: "Print a file with line numbers using bat.",
			Base:        []string{"--color=never", "--paging=never", "--style=numbers"},
			Params: []Param{
				joinedParam("range", "--line-range=", "Line range such as 10:20"),
				joinedParam("language", "--language=", "Syntax to assume"),
				pathParam("path", "File to view", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "fs_find", Group: GroupFilesystem, Binary: "fd", ReadOnly: true,
			Description: "Find files and directories with fd. Returns a path list.",
			Base:        []string{"--color=never"},
			Params: []Param{
				flagParam("hidden", "-H", "Include hidden files"),
				flagParam("ignore_case", "-i", "Case-insensitive pattern"),
				optionParam("extension", "-e", "File extension filter"),
				enumParam(optionParam("type", "--type", "Entry type"), "f", "d", "l", "x"),
				intParam("max_depth", "--max-depth=", "Maximum search depth"),
				joinedParam("exclude", "--exclude=", "Glob to exclude"),
				positionalParam("pattern", "Regex pattern", false),
				pathParam("path", "Directory to search", false),
			},
			Format: domain.FormatPathList, IgnoreFiles: true,
		},
		{
			Name: "fs_disk_usage", Group: GroupFilesystem, Binary: "duf", ReadOnly: true,
			Description: "Show mounted filesystems and their usage with duf.",
			Base:        []string{"-json"},
			Params:      []Param{pathParam("path", "Only show the filesystem holding this path", false)},
			Format:      domain.FormatJSON,
		},
		{
			Name: "fs_dir_size", Group: GroupFilesystem, Binary: "dust", ReadOnly: true,
			Description: "Show the largest entries under a directory with dust.",
			Base:        []string{"--no-colors", "--no-percent-bars"},
			Params: []Param{
				defaulted(intParam("count", "--number-of-lines=", "Number of entries"), 20),
				intParam("depth", "--depth=", "Maximum depth"),
				pathParam("path", "Directory to measure", false),
			},
			Format: domain.FormatDiskUsage,
		},
		{
			Name: "fs_trash", Group: GroupFilesystem, Binary: "rip",
			Description: "Move files to the graveyard with rip instead of deleting them.",
			Params:      []Param{pathsParam("paths", "Files or directories to trash", true)},
			Format:      domain.FormatText,
		},
		{
			Name: "fs_trash_list", Group: GroupFilesystem, Binary: "rip", ReadOnly: true,
			Description: "List files in the graveyard under the working directory.",
			Base:        []string{"--seance"},
			Params:      []Param{workdirParam()},
			Format:      domain.FormatLines,
		},
		{
			Name: "fs_trash_restore", Group: GroupFilesystem, Binary: "rip",
			Description: "Restore the most recently trashed file, or a specific graveyard path.",
			Base:        []string{"--unbury"},
			Params:      []Param{positionalParam("target", "Graveyard path to restore", false), workdirParam()},
			Format:      domain.FormatText,
		},
		{
			Name: "fs_copy", Group: GroupFilesystem, Binary: "cp",
			Description: "Copy files or directories recursively.",
			Base:        []string{"-R"},
			Params: []Param{
				flagParam("no_clobber", "-n", "Do not overwrite existing files"),
				pathParam("source", "Source path", true),
				pathParam("dest", "Destination path", true),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "fs_move", Group: GroupFilesystem, Binary: "mv",
			Description: "Move or rename files and directories.",
			Params: []Param{
				flagParam("no_clobber", "-n", "Do not overwrite existing files"),
				pathParam("source", "Source path", true),
				pathParam("dest", "Destination path", true),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "fs_mkdir", Group: GroupFilesystem, Binary: "mkdir",
			Description: "Create directories including parents.",
			Base:        []string{"-p"},
			Params:      []Param{pathsParam("paths", "Directories to create", true)},
			Format:      domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "fs_exists", Group: GroupFilesystem, Binary: "test", ReadOnly: true,
			Description: "Check whether a path exists. Exit code 0 means it does.",
			Base:        []string{"-e"},
			Params:      []Param{pathParam("path", "Path to check", true)},
			Format:      domain.FormatText,
		},
		{
			Name: "fs_stat", Group: GroupFilesystem, Binary: "stat", ReadOnly: true,
			Description: "Show file metadata.",
			Params:      []Param{pathsParam("paths", "Paths to inspect", true)},
			Format:      domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "fs_symlink", Group: GroupFilesystem, Binary: "ln",
			Description: "Create a symbolic link pointing at target.",
			Base:        []string{"-s"},
			Params: []Param{
				pathParam("target", "What the link points to", true),
				pathParam("link", "Link path to create", true),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "fs_file_type", Group: GroupFilesystem, Binary: "file", ReadOnly: true,
			Description: "Detect a file's type from its contents.",
			Base:        []string{"--mime-type"},
			Params:      []Param{hinted(pathParam("path", "File to inspect", true), domain.HintPath)},
			Format:      domain.FormatFileType, EndOfOptions: true,
		},
	}
}

func fileOpsProcedures() []Procedure {
	return []Procedure{
		{
			Name: "file_read", Group: GroupFileOps, Binary: "cat", ReadOnly: true,
			Description: "Read a file verbatim.",
			Params:      []Param{pathParam("path", "File to read", true)},
			Format:      domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "file_write", Group: GroupFileOps, Binary: "sh",
			Description: "Write content to a file, replacing it.",
			Base:        []string{"-c", `cat > "$1"`, "file_write"},
			Params: []Param{
				stdinParam("content", "New file content", true),
				pathParam("path", "File to write", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "file_append", Group: GroupFileOps, Binary: "sh",
			Description: "Append content to a file.",
			Base:        []string{"-c", `cat >> "$1"`, "file_append"},
			Params: []Param{
				stdinParam("content", "Content to append", true),
				pathParam("path", "File to append to", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "file_edit", Group: GroupFileOps, Binary: "sd",
			Description: "Replace text in a file in place with sd.",
			Params: []Param{
				flagParam("literal", "-F", "Treat find as a literal string"),
				intParam("max", "--max-replacements=", "Limit the number of replacements"),
				positionalParam("find", "Regex or literal to find", true),
				positionalParam("replace", "Replacement text", true),
				pathParam("path", "File to edit", true),
			},
			Format: domain.FormatText, EndOfOptions: true,
		},
		{
			Name: "file_patch", Group: GroupFileOps, Binary: "patch",
			Description: "Apply a unified diff in the working directory.",
			Base:        []string{"--batch", "--forward"},
			Params: []Param{
				defaulted(intParam("strip", "-p", "Leading path components to strip"), 1),
				flagParam("dry_run", "--dry-run", "Check without modifying files"),
				stdinParam("diff", "Unified diff to apply", true),
				workdirParam(),
			},
			Format: domain.FormatText,
		},
	}
}

func searchProcedures() []Procedure {
	return []Procedure{
		{
			Name: "search_content", Group: GroupSearch, Binary: "rg", ReadOnly: true,
			Description: "Search file contents with ripgrep. Returns path, line and text per match.",
			Base:        []string{"--color=never", "--no-heading", "--with-filename", "--line-number"},
			Params: []Param{
				flagParam("ignore_case", "-i", "Case-insensitive search"),
				flagParam("smart_case", "-S", "Case-insensitive unless the pattern has uppercase"),
				flagParam("fixed_strings", "-F", "Treat the pattern as a literal"),
				flagParam("word", "-w", "Match whole words"),
				flagParam("hidden", "--hidden", "Search hidden files"),
				joinedParam("type", "-t", "File type filter such as go or py"),
				joinedParam("glob", "--glob=", "Include or exclude files by glob"),
				intParam("max_count", "-m", "Maximum matches per file"),
				intParam("context", "-C", "Context lines around each match"),
				hinted(positionalParam("pattern", "Regex to search for", true), domain.HintQuery),
				pathsParam("paths", "Files or directories to search", false),
			},
			Format: domain.FormatGrep, EndOfOptions: true, IgnoreFiles: true,
			Timeout: 60 * time.Second,
		},
		{
			Name: "search_fuzzy", Group: GroupSearch, Binary: "fzf", ReadOnly: true,
			Description: "Rank newline-separated items against a fuzzy query with fzf.",
			Params: []Param{
				required(hinted(optionParam("query", "--filter", "Fuzzy query"), domain.HintQuery)),
				flagParam("exact", "--exact", "Exact matching"),
				flagParam("ignore_case", "-i", "Case-insensitive matching"),
				stdinParam("input", "Items to filter, one per line", true),
			},
			Format: domain.FormatRanked,
		},
		{
			Name: "search_ast", Group: GroupSearch, Binary: "sg", ReadOnly: true,
			Description: "Structural code search with ast-grep. Returns JSON matches.",
			Base:        []string{"run", "--json=compact"},
			Params: []Param{
				required(optionParam("pattern", "--pattern", "AST pattern such as 'fmt.Println($A)'")),
				joinedParam("lang", "--lang=", "Language of the pattern"),
				pathsParam("paths", "Files or directories to search", false),
			},
			Format: domain.FormatJSON, CacheTTL: domain.UseDefaultCacheTTL,
		},
	}
}

func diffProcedures() []Procedure {
	return []Procedure{
		{
			Name: "diff_files", Group: GroupDiff, Binary: "diff", ReadOnly: true,
			Description: "Compare two files as a unified diff. Exit code 1 means they differ.",
			Base:        []string{"-u"},
			Params: []Param{
				intParam("context", "-U", "Context lines"),
				flagParam("ignore_whitespace", "-w", "Ignore all whitespace"),
				hinted(pathParam("file_a", "Original file", true), domain.HintFileA),
				hinted(pathParam("file_b", "Changed file", true), domain.HintFileB),
			},
			Format: domain.FormatUnifiedDiff, EndOfOptions: true,
		},
		{
			Name: "diff_structural", Group: GroupDiff, Binary: "difft", ReadOnly: true,
			Description: "Syntax-aware diff with difftastic.",
			Base:        []string{"--color=never", "--display=inline"},
			Params: []Param{
				pathParam("file_a", "Original file", true),
				pathParam("file_b", "Changed file", true),
			},
			Format: domain.FormatText,
		},
	}
}

func archiveProcedures() []Procedure {
	return []Procedure{
		{
			Name: "archive_compress", Group: GroupArchive, Binary: "ouch",
			Description: "Compress files; the format follows the output extension (tar.gz, zip, 7z, zst).",
			Base:        []string{"compress", "--yes"},
			Params: []Param{
				pathsParam("inputs", "Files to include", true),
				pathParam("output", "Archive to create", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "archive_decompress", Group: GroupArchive, Binary: "ouch",
			Description: "Extract an archive.",
			Base:        []string{"decompress", "--yes"},
			Params: []Param{
				optionParam("dir", "--dir", "Output directory"),
				pathParam("archive", "Archive to extract", true),
			},
			Format: domain.FormatText,
		},
		{
			Name: "archive_list", Group: GroupArchive, Binary: "ouch", ReadOnly: true,
			Description: "List archive contents.",
			Base:        []string{"list"},
			Params:      []Param{pathParam("archive", "Archive to inspect", true)},
			Format:      domain.FormatLines,
		},
	}
}
