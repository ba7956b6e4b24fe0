package preflight

type Plan struct {
	// RequireTool enables the external-tool presence check. The native
	// compression engine does not need it.
	RequireTool bool
	// ToolPackage is the system package name probed via dpkg (e.g. "ghostscript").
	ToolPackage string
	// ToolBinary is the executable looked up on PATH as a fallback (e.g. "gs").
	ToolBinary string
}
