package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadKeywords reads whitespace-separated keywords from path. Lines whose
// first non-blank character is '#' are comments.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keywords file: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keywords file %s: %w", path, err)
	}

	return words, nil
}
