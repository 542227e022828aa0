// Package render provides visual output for report documents.
//
// # Overview
//
// This package groups the renderers that turn aggregated metrics into
// graphics embedded in reports:
//
//   - SVG bar and line charts (in [chart] subpackage)
//   - Duplicate relation graphs (in [relgraph] subpackage)
//
// # Charts
//
// The [chart] subpackage draws self-contained SVG charts with no
// external tooling. Charts take period labels and one series per
// measure:
//
//	svg := chart.BarChart(labels, []chart.Series{
//		{Label: "created", Values: created},
//		{Label: "closed", Values: closed},
//	}, chart.WithTitle("Created vs closed"))
//
// # Relation Graphs
//
// The [relgraph] subpackage renders duplicate clusters as directed
// graphs. It emits Graphviz DOT by default and can render SVG through
// the embedded Graphviz runtime:
//
//	dot := relgraph.ToDOT(rootID, nodes, relgraph.Options{})
//	svg, err := relgraph.RenderSVG(dot)
//
// [chart]: github.com/trackstats/trackstats/pkg/render/chart
// [relgraph]: github.com/trackstats/trackstats/pkg/render/relgraph
package render
