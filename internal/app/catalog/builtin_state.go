package catalog

import "clihub/internal/domain"

// Names of the in-process state procedures.
const (
	ProcTaskCreate    = "task_create"
	ProcTaskList      = "task_list"
	ProcTaskUpdate    = "task_update"
	ProcTaskDelete    = "task_delete"
	ProcContextGet    = "context_get"
	ProcContextSet    = "context_set"
	ProcContextList   = "context_list"
	ProcContextDelete = "context_delete"
	ProcContextClear  = "context_clear"
	ProcCacheGet      = "cache_get"
	ProcCacheSet      = "cache_set"
	ProcCacheDelete   = "cache_delete"
	ProcAuthCheck     = "auth_check"
)

func field(name string, typ ValueType, description string, required bool) Param {
	return Param{Name: name, Kind: KindPositional, Type: typ, Description: description, Required: required}
}

func stateProcedures() []Procedure {
	scope := enumParam(field("scope", TypeString, "Context scope, session by default. Session values belong to the current MCP session", false),
		string(domain.ScopeSession), string(domain.ScopeProject), string(domain.ScopeGlobal))
	return []Procedure{
		{Name: ProcTaskCreate, Group: GroupState, Description: "Create a task. Returns its id.",
			Params: []Param{field("payload", TypeString, "Task description or JSON payload", true)}},
		{Name: ProcTaskList, Group: GroupState, Description: "List tasks in creation order.", ReadOnly: true,
			Params: []Param{field("status", TypeString, "Only tasks with this status", false)}},
		{Name: ProcTaskUpdate, Group: GroupState, Description: "Change a task's status or payload.",
			Params: []Param{
				field("id", TypeString, "Task id", true),
				field("status", TypeString, "New status such as in_progress or completed", false),
				field("payload", TypeString, "New payload", false),
			}},
		{Name: ProcTaskDelete, Group: GroupState, Description: "Delete a task. Deleting a missing task succeeds.",
			Params: []Param{field("id", TypeString, "Task id", true)}},
		{Name: ProcContextGet, Group: GroupState, Description: "Read a context value.", ReadOnly: true,
			Params: []Param{scope, field("key", TypeString, "Key", true)}},
		{Name: ProcContextSet, Group: GroupState, Description: "Store a context value.",
			Params: []Param{scope, field("key", TypeString, "Key", true), field("value", TypeString, "Value", true)}},
		{Name: ProcContextList, Group: GroupState, Description: "List keys in a context scope.", ReadOnly: true,
			Params: []Param{scope}},
		{Name: ProcContextDelete, Group: GroupState, Description: "Delete a context value.",
			Params: []Param{scope, field("key", TypeString, "Key", true)}},
		{Name: ProcContextClear, Group: GroupState, Description: "Delete every value in a context scope. The session scope only holds this session's values.",
			Params: []Param{scope}},
		{Name: ProcCacheGet, Group: GroupState, Description: "Read a cached value. Expired entries read as missing.", ReadOnly: true,
			Params: []Param{field("key", TypeString, "Cache key", true)}},
		{Name: ProcCacheSet, Group: GroupState, Description: "Store a JSON value in the cache.",
			Params: []Param{
				field("key", TypeString, "Cache key", true),
				field("value", TypeString, "JSON document to store", true),
				field("ttl_seconds", TypeInteger, "Lifetime in seconds; 0 keeps it until deleted", false),
			}},
		{Name: ProcCacheDelete, Group: GroupState, Description: "Delete a cached value.",
			Params: []Param{field("key", TypeString, "Cache key", true)}},
		{Name: ProcAuthCheck, Group: GroupState, Description: "Report the login state of an external service, probing it when the memo is stale.",
			Params: []Param{
				field("service", TypeString, "Service name such as github or gitlab", true),
				field("refresh", TypeBoolean, "Probe even if the memo is fresh", false),
			}},
	}
}

// Builtins returns every built-in procedure in display order.
func Builtins() []Procedure {
	var out []Procedure
	for _, group := range [][]Procedure{
		filesystemProcedures(),
		fileOpsProcedures(),
		searchProcedures(),
		textProcedures(),
		gitProcedures(),
		githubProcedures(),
		gitlabProcedures(),
		kubernetesProcedures(),
		containerProcedures(),
		networkProcedures(),
		systemProcedures(),
		archiveProcedures(),
		referenceProcedures(),
		diffProcedures(),
		stateProcedures(),
	} {
		out = append(out, group...)
	}
	return out
}
