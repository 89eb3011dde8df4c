// Package main saves the data-star.dev documentation as local markdown,
// one file per top-level section. The dashboard front end leans on
// Datastar attributes and actions, so an offline copy of its reference
// keeps development possible without the site.
//
// Usage:
//
//	go run ./scripts/syncdatastardocs [-out docs/datastar]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

const docsURL = "https://data-star.dev/docs"

var outDir = flag.String("out", "docs/datastar", "output directory for the synced docs")

var (
	reAnchorLinks = regexp.MustCompile(`\s*\[#\]\(#[\w-]*\)`)
	reCodeLineNum = regexp.MustCompile(`^(\s*)\d{1,4}(.*)$`)
	reBlankRuns   = regexp.MustCompile(`\n{3,}`)
	reSlugStrip   = regexp.MustCompile(`[^a-z0-9 -]`)
)

// section is one H1-delimited chunk of the docs page.
type section struct {
	id    string
	title string
	body  string
}

func main() {
	flag.Parse()

	if err := run(*outDir); err != nil {
		log.Fatal(err)
	}
}

func run(dir string) error {
	log.Printf("Fetching %s", docsURL)
	page, err := fetchDocs(docsURL)
	if err != nil {
		return err
	}

	sections, err := splitSections(page)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		return fmt.Errorf("no sections found, page layout may have changed")
	}
	log.Printf("Found %d sections", len(sections))

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	saved := 0
	for _, s := range sections {
		body := stripNoise(s.body)
		if len(body) < 50 {
			log.Printf("  skipping near-empty section %q", s.title)
			continue
		}
		if !strings.HasPrefix(body, "#") {
			body = "# " + s.title + "\n\n" + body
		}

		name := slugify(s.id)
		if name == "" {
			name = slugify(s.title)
		}
		if name == "" {
			name = fmt.Sprintf("section-%d", saved)
		}

		path := filepath.Join(dir, name+".md")
		if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
			return err
		}
		log.Printf("  wrote %s", path)
		saved++
	}

	log.Printf("Synced %d sections to %s", saved, dir)
	return nil
}

func fetchDocs(pageURL string) (*html.Node, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "framedeck-docs-sync/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch docs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return html.Parse(strings.NewReader(string(body)))
}

// splitSections cuts the docs <article> at each identified <h1> and
// converts every chunk to markdown.
func splitSections(doc *html.Node) ([]section, error) {
	article := findTag(doc, "article")
	if article == nil {
		return nil, fmt.Errorf("no article element in page")
	}

	var headings []*html.Node
	walk(article, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "h1" && attr(n, "id") != "" {
			headings = append(headings, n)
		}
	})

	var sections []section
	for i, h1 := range headings {
		var next *html.Node
		if i+1 < len(headings) {
			next = headings[i+1]
		}

		var sb strings.Builder
		if err := html.Render(&sb, h1); err != nil {
			return nil, err
		}
		for sib := h1.NextSibling; sib != nil && sib != next; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == "h1" {
				break
			}
			if err := html.Render(&sb, sib); err != nil {
				return nil, err
			}
		}

		md, err := htmltomarkdown.ConvertString(sb.String())
		if err != nil {
			log.Printf("  skipping %q, markdown conversion failed: %v", attr(h1, "id"), err)
			continue
		}

		sections = append(sections, section{
			id:    attr(h1, "id"),
			title: strings.TrimSpace(strings.TrimRight(text(h1), "#")),
			body:  md,
		})
	}
	return sections, nil
}

// stripNoise drops site artifacts that survive the markdown conversion:
// anchor self-links on headings, line numbers inside highlighted code
// blocks, and runs of blank lines.
func stripNoise(md string) string {
	md = reAnchorLinks.ReplaceAllString(md, "")

	lines := strings.Split(md, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			if m := reCodeLineNum.FindStringSubmatch(line); m != nil {
				lines[i] = m[1] + m[2]
			}
		} else {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}

	md = strings.Join(lines, "\n")
	md = reBlankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reSlugStrip.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	return strings.Trim(s, "-")
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}
