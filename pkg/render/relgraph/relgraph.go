// Package relgraph renders duplicate-relation trees as Graphviz
// diagrams.
//
// The input is the same id-indexed record map the rollup walk consumes.
// Nodes are laid out by discovery level, so the root sits on top with
// its direct duplicates below it.
package relgraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Node is one rendered record.
type Node struct {
	ID      int
	Label   string
	Related []int
	Value   int
}

// Options configures diagram rendering.
type Options struct {
	// Detailed includes the record value in node labels. When false,
	// only the label text is shown.
	Detailed bool
}

// ToDOT converts a duplicate tree to Graphviz DOT format, rooted at
// root. Only records reachable from the root are emitted; dangling
// references are skipped the way the rollup walk skips them.
func ToDOT(root int, index map[int]Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph duplicates {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ordered := reachable(root, index)
	for _, id := range ordered {
		n := index[id]
		attrs := fmtAttrs(n, id == root, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", strconv.Itoa(id), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range ordered {
		for _, to := range index[id].Related {
			if _, ok := index[to]; !ok {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", strconv.Itoa(id), strconv.Itoa(to))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// reachable lists the records the rollup walk would visit, root first,
// in level order.
func reachable(root int, index map[int]Node) []int {
	if _, ok := index[root]; !ok {
		return nil
	}

	ordered := []int{root}
	seen := map[int]bool{root: true}
	frontier := []int{root}
	for len(frontier) > 0 {
		var next []int
		for _, id := range frontier {
			for _, to := range index[id].Related {
				if _, ok := index[to]; !ok || seen[to] {
					continue
				}
				seen[to] = true
				ordered = append(ordered, to)
				next = append(next, to)
			}
		}
		frontier = next
	}
	return ordered
}

func fmtAttrs(n Node, isRoot, detailed bool) []string {
	label := n.Label
	if label == "" {
		label = strconv.Itoa(n.ID)
	}
	if detailed {
		label = fmt.Sprintf("%s\nvalue: %d", label, n.Value)
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if isRoot {
		attrs = append(attrs, "style=\"rounded,filled,bold\"", "fillcolor=lightyellow")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the document has a
// zero-origin viewBox and explicit pixel dimensions. Graphviz emits
// point units and a shifted origin that confuse inline embedding.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
