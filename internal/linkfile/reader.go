package linkfile

import "github.com/devlink-labs/devlink/internal/diag"

// Reader reads nested declaration files from package directories. Paths in a
// nested file are relative to that file's directory, which callers pass
// explicitly instead of changing the working directory.
type Reader struct {
	// Sink receives per-line parse diagnostics from nested files.
	Sink diag.Sink
}

// HasNested reports whether dir carries its own declaration file.
func (r Reader) HasNested(dir string) bool {
	return Exists(dir)
}

// ReadNested parses the declaration file in dir.
func (r Reader) ReadNested(dir string) ([]Declaration, error) {
	decls, events, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if r.Sink != nil {
		diag.EmitAll(r.Sink, events)
	}
	return decls, nil
}
