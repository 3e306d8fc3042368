package ingest

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v2"
)

// FrontMatter is the optional YAML header of a policy markdown file.
type FrontMatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
	Owner string   `yaml:"owner"`
}

var fence = []byte("---")

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// markdown body. Files without one return a zero FrontMatter and the input.
func SplitFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	src := bytes.TrimPrefix(source, []byte("\ufeff"))
	firstLine, rest, ok := bytes.Cut(src, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimSpace(firstLine), fence) {
		return fm, source, nil
	}

	var header []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), fence) {
			if err := yaml.Unmarshal(header, &fm); err != nil {
				return fm, source, fmt.Errorf("parsing front matter: %w", err)
			}
			return fm, rest, nil
		}
		header = append(header, line...)
		header = append(header, '\n')
	}
	// No closing fence: treat the whole file as markdown.
	return FrontMatter{}, source, nil
}
