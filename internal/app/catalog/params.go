package catalog

func flagParam(name, flag, description string) Param {
	return Param{Name: name, Kind: KindFlag, Type: TypeBoolean, Flag: flag, Description: description}
}

func optionParam(name, flag, description string) Param {
	return Param{Name: name, Kind: KindOption, Type: TypeString, Flag: flag, Description: description}
}

func joinedParam(name, flag, description string) Param {
	return Param{Name: name, Kind: KindOption, Type: TypeString, Flag: flag, Joined: true, Description: description}
}

func intParam(name, flag, description string) Param {
	return Param{Name: name, Kind: KindOption, Type: TypeInteger, Flag: flag, Joined: true, Description: description}
}

func positionalParam(name, description string, required bool) Param {
	return Param{Name: name, Kind: KindPositional, Type: TypeString, Description: description, Required: required}
}

func pathParam(name, description string, required bool) Param {
	return Param{Name: name, Kind: KindPath, Type: TypeString, Description: description, Required: required}
}

func pathsParam(name, description string, required bool) Param {
	return Param{Name: name, Kind: KindPath, Type: TypeArray, Description: description, Required: required}
}

func workdirParam() Param {
	return Param{Name: "cwd", Kind: KindWorkdir, Type: TypeString, Description: "Working directory"}
}

func stdinParam(name, description string, required bool) Param {
	return Param{Name: name, Kind: KindStdin, Type: TypeString, Description: description, Required: required}
}

func enumParam(p Param, values ...string) Param {
	p.Enum = values
	return p
}

func hinted(p Param, hint string) Param {
	p.Hint = hint
	return p
}

func defaulted(p Param, value any) Param {
	p.Default = value
	return p
}

func required(p Param) Param {
	p.Required = true
	return p
}
