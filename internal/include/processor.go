// Package include expands psql include directives (\i and \ir) so that a
// desired schema can be split across several SQL files.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pgschema/sqlschema/internal/logger"
)

// directive matches "\i path" and "\ir path" with an optional trailing semicolon.
var directive = regexp.MustCompile(`^\s*\\ir?\s+([^\s;]+)\s*;?\s*$`)

// Processor expands include directives relative to the including file.
// Included files must stay inside the directory of the top-level file.
type Processor struct {
	baseDir string
	stack   map[string]bool
	files   []string
}

func NewProcessor() *Processor {
	return &Processor{}
}

// ProcessFile returns the content of filename with every include directive
// replaced by the content of the included file.
func (p *Processor) ProcessFile(filename string) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", filename, err)
	}
	p.baseDir = filepath.Dir(abs)
	p.stack = make(map[string]bool)
	p.files = nil

	out, err := p.expand(abs)
	if err != nil {
		return "", err
	}
	logger.Get().Debug("Expanded SQL includes", "file", filename, "files", len(p.files))
	return out, nil
}

// Files lists every file read by the last ProcessFile call, in read order.
func (p *Processor) Files() []string {
	return p.files
}

func (p *Processor) expand(filename string) (string, error) {
	if p.stack[filename] {
		return "", fmt.Errorf("circular include of %s", filename)
	}
	p.stack[filename] = true
	defer delete(p.stack, filename)

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	p.files = append(p.files, filename)

	dir := filepath.Dir(filename)
	lines := strings.Split(string(content), "\n")
	var b strings.Builder
	for i, line := range lines {
		m := directive.FindStringSubmatch(line)
		if m == nil {
			b.WriteString(line)
			if i < len(lines)-1 {
				b.WriteByte('\n')
			}
			continue
		}

		target, err := p.resolve(m[1], dir)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		included, err := p.expand(target)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		b.WriteString(included)
		if !strings.HasSuffix(included, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func (p *Processor) resolve(path, dir string) (string, error) {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("include path %s must be relative and inside %s", path, p.baseDir)
	}
	abs := filepath.Join(dir, clean)
	if rel, err := filepath.Rel(p.baseDir, abs); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("include path %s is outside %s", path, p.baseDir)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("included file %s: %w", path, err)
	}
	return abs, nil
}
