package linkfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/diag"
)

const watchPrefix = "watch:"

// Declaration is one local package named by a declaration file.
type Declaration struct {
	Name          string
	Path          string   // as written; may be relative to the declaring file's directory
	BuildCommand  string   // optional shell command run in the package directory
	WatchPatterns []string // optional globs relative to the package directory
	Line          int      // 1-based source line, 0 when constructed in code
}

// Resolve returns the declaration's absolute path. Relative paths are joined
// onto base, never onto another declaration's path.
func (d Declaration) Resolve(base string) string {
	p := d.Path
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Names returns the declared names in order.
func Names(decls []Declaration) []string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}

// FilePath returns the declaration file path inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, branding.LinkFile())
}

// Exists reports whether dir contains a declaration file.
func Exists(dir string) bool {
	info, err := os.Stat(FilePath(dir))
	return err == nil && !info.IsDir()
}

// Load reads the declaration file in dir. A missing or empty file is not an
// error: it yields no declarations and an informational ConfigError event.
func Load(dir string) ([]Declaration, []diag.Event, error) {
	path := FilePath(dir)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, []diag.Event{{
				Kind:   diag.ConfigError,
				Detail: fmt.Sprintf("no %s found in %s, nothing to link", branding.LinkFile(), dir),
			}}, nil
		}
		return nil, nil, fmt.Errorf("opening declaration file %s: %w", path, err)
	}
	defer f.Close()

	decls, events, err := Parse(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading declaration file %s: %w", path, err)
	}
	if len(decls) == 0 && len(events) == 0 {
		events = append(events, diag.Event{
			Kind:   diag.ConfigError,
			Detail: fmt.Sprintf("%s declares no packages", path),
		})
	}
	return decls, events, nil
}

// Parse reads declarations from r. Malformed lines and duplicate names are
// skipped and reported as ConfigError events; the only error returned is a
// read failure from r.
func Parse(r io.Reader) ([]Declaration, []diag.Event, error) {
	var (
		decls  []Declaration
		events []diag.Event
		seen   = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		decl, err := parseLine(line)
		if err != nil {
			events = append(events, diag.Event{
				Kind:    diag.ConfigError,
				Package: decl.Name,
				Detail:  fmt.Sprintf("line %d: %v", lineNo, err),
			})
			continue
		}
		decl.Line = lineNo

		if first, dup := seen[decl.Name]; dup {
			events = append(events, diag.Event{
				Kind:    diag.ConfigError,
				Package: decl.Name,
				Detail:  fmt.Sprintf("line %d: duplicate declaration, keeping line %d", lineNo, first),
			})
			continue
		}
		seen[decl.Name] = lineNo
		decls = append(decls, decl)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return decls, events, nil
}

// parseLine parses "name = path [build] [watch:a,b]". On error the returned
// declaration carries whatever name was recognized, for diagnostics.
func parseLine(line string) (Declaration, error) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return Declaration{}, fmt.Errorf("expected name = path, got %q", line)
	}

	decl := Declaration{Name: strings.TrimSpace(line[:eq])}
	if decl.Name == "" {
		return decl, fmt.Errorf("missing package name")
	}

	rest := strings.TrimSpace(line[eq+1:])
	pathEnd := strings.IndexByte(rest, '[')
	if pathEnd < 0 {
		pathEnd = len(rest)
	}
	decl.Path = strings.TrimSpace(rest[:pathEnd])
	if decl.Path == "" {
		return decl, fmt.Errorf("missing path for %s", decl.Name)
	}

	var sawBuild, sawWatch bool
	annotations := strings.TrimSpace(rest[pathEnd:])
	for annotations != "" {
		if annotations[0] != '[' {
			return decl, fmt.Errorf("unexpected text %q after annotations", annotations)
		}
		end := strings.IndexByte(annotations, ']')
		if end < 0 {
			return decl, fmt.Errorf("unterminated bracket in %q", annotations)
		}
		body := strings.TrimSpace(annotations[1:end])
		annotations = strings.TrimSpace(annotations[end+1:])

		if strings.HasPrefix(body, watchPrefix) {
			if sawWatch {
				return decl, fmt.Errorf("watch annotation given twice")
			}
			sawWatch = true
			decl.WatchPatterns = splitPatterns(strings.TrimPrefix(body, watchPrefix))
			continue
		}

		if body == "" {
			return decl, fmt.Errorf("empty build command")
		}
		if sawBuild {
			return decl, fmt.Errorf("build command given twice")
		}
		sawBuild = true
		decl.BuildCommand = body
	}

	return decl, nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
