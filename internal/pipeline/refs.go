package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseRefs reads one video reference per line. Blank lines and lines
// starting with # are ignored; duplicates keep their first position.
func ParseRefs(r io.Reader) ([]string, error) {
	var refs []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read references: %w", err)
	}
	return refs, nil
}

// ReadRefsFile is ParseRefs over a file; "-" reads stdin.
func ReadRefsFile(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return ParseRefs(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference list: %w", err)
	}
	defer f.Close()
	return ParseRefs(f)
}
