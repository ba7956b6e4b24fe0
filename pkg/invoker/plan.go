package invoker

type Plan struct {
	Engine  Engine
	Quality Quality
	// CommandTemplate is the external-command string with the substitutable
	// tokens <QUALITY>, <OUTPUT> and <SOURCE>. Only used by the external engine.
	CommandTemplate string
	// Workers bounds the number of concurrent invocations within a directory.
	// 1 (the default) keeps the batch fully sequential; the external tool's
	// per-invocation resource usage is unbounded, so parallelism is opt-in.
	Workers int

	// Global Flags
	DryRun   bool
	FailFast bool
}
