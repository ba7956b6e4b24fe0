package dirmap

type Plan struct {
	// Extension is the filename filter token, e.g. ".pdf".
	Extension string
	// Recursive selects full tree traversal instead of scanning only the
	// source root's immediate children.
	Recursive bool
	// MatchContains restores the legacy substring-containment filename match.
	// The default is strict suffix matching, which avoids false positives
	// like "report.pdfold" matching ".pdf".
	MatchContains bool
	// PruneEmptyDirs drops directories whose whole subtree holds no matching
	// files. The default keeps them so the output tree mirrors the source
	// shape exactly.
	PruneEmptyDirs bool
}
