// Package chart renders time-series report charts as standalone SVG.
//
// The renderers take the aligned per-period series the aggregation
// layer produces and emit self-contained markup with no script or
// external assets, so the files embed cleanly in markdown reports.
package chart

import (
	"bytes"
	"fmt"

	"github.com/trackstats/trackstats/pkg/period"
)

// Series is one named line or bar group.
type Series struct {
	Label  string
	Values []int
	Color  string
}

// defaultPalette cycles when a series carries no explicit color.
var defaultPalette = []string{"#4c78a8", "#f58518", "#54a24b", "#e45756", "#72b7b2", "#b279a2"}

const (
	marginLeft   = 56.0
	marginRight  = 16.0
	marginTop    = 40.0
	marginBottom = 64.0
	yTicks       = 5
)

type Option func(*renderer)

type renderer struct {
	width   float64
	height  float64
	title   string
	barSpan float64 // bar width as a fraction of one period slot
}

func WithSize(w, h float64) Option { return func(r *renderer) { r.width = w; r.height = h } }
func WithTitle(title string) Option {
	return func(r *renderer) { r.title = title }
}

// WithGranularity sizes bars from the per-granularity bar width, so the
// gap between adjacent bars stays proportional to the period length.
func WithGranularity(g period.Granularity) Option {
	return func(r *renderer) {
		r.barSpan = float64(period.BarWidthDays(g)) / slotDays(g)
	}
}

// slotDays is the nominal period length in x-axis days, the divisor that
// turns a bar width in days into a slot fraction.
func slotDays(g period.Granularity) float64 {
	switch g {
	case period.Week:
		return 7
	case period.Month:
		return 30.44
	case period.Quarter:
		return 91.31
	default:
		return 365.25
	}
}

func newRenderer(opts ...Option) renderer {
	r := renderer{width: 960, height: 420, barSpan: 0.7}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// BarChart renders grouped bars, one group per label, one bar per
// series. Series must all have len(labels) values.
func BarChart(labels []string, series []Series, opts ...Option) []byte {
	r := newRenderer(opts...)
	lo, hi := valueRange(series, true)

	var buf bytes.Buffer
	r.open(&buf)
	r.axes(&buf, labels, lo, hi)

	plotW, plotH := r.plotSize()
	slot := plotW / float64(max(1, len(labels)))
	groupW := slot * r.barSpan
	barW := groupW / float64(max(1, len(series)))

	for si, s := range series {
		color := seriesColor(s, si)
		for i, v := range s.Values {
			if i >= len(labels) {
				break
			}
			x := marginLeft + float64(i)*slot + (slot-groupW)/2 + float64(si)*barW
			y, h := barGeometry(v, lo, hi, plotH)
			fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %d</title></rect>`+"\n",
				x, marginTop+y, barW, h, color, escapeXML(s.Label), v)
		}
	}

	r.legend(&buf, series)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// LineChart renders one polyline per series over the shared labels.
func LineChart(labels []string, series []Series, opts ...Option) []byte {
	r := newRenderer(opts...)
	lo, hi := valueRange(series, false)

	var buf bytes.Buffer
	r.open(&buf)
	r.axes(&buf, labels, lo, hi)

	plotW, plotH := r.plotSize()
	slot := plotW / float64(max(1, len(labels)))

	for si, s := range series {
		color := seriesColor(s, si)
		var points bytes.Buffer
		for i, v := range s.Values {
			if i >= len(labels) {
				break
			}
			x := marginLeft + float64(i)*slot + slot/2
			y := marginTop + scaleY(v, lo, hi, plotH)
			fmt.Fprintf(&points, "%.1f,%.1f ", x, y)
		}
		fmt.Fprintf(&buf, `  <polyline points="%s" fill="none" stroke="%s" stroke-width="2"><title>%s</title></polyline>`+"\n",
			bytes.TrimSpace(points.Bytes()), color, escapeXML(s.Label))
	}

	r.legend(&buf, series)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) plotSize() (w, h float64) {
	return r.width - marginLeft - marginRight, r.height - marginTop - marginBottom
}

func (r *renderer) open(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f" font-family="sans-serif" font-size="12">`+"\n",
		r.width, r.height, r.width, r.height)
	if r.title != "" {
		fmt.Fprintf(buf, `  <text x="%.1f" y="24" text-anchor="middle" font-size="16">%s</text>`+"\n",
			r.width/2, escapeXML(r.title))
	}
}

func (r *renderer) axes(buf *bytes.Buffer, labels []string, lo, hi int) {
	plotW, plotH := r.plotSize()

	// Frame.
	fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n",
		marginLeft, marginTop, marginLeft, marginTop+plotH)
	fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n",
		marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)

	// Y ticks and gridlines.
	for i := 0; i <= yTicks; i++ {
		v := lo + (hi-lo)*i/yTicks
		y := marginTop + scaleY(v, lo, hi, plotH)
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ddd"/>`+"\n",
			marginLeft, y, marginLeft+plotW, y)
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle">%d</text>`+"\n",
			marginLeft-8, y, v)
	}

	// X labels, thinned so long ranges stay readable.
	slot := plotW / float64(max(1, len(labels)))
	step := 1
	if len(labels) > 24 {
		step = len(labels) / 24
	}
	for i := 0; i < len(labels); i += step {
		x := marginLeft + float64(i)*slot + slot/2
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="end" transform="rotate(-45 %.1f %.1f)">%s</text>`+"\n",
			x, marginTop+plotH+16, x, marginTop+plotH+16, escapeXML(labels[i]))
	}
}

func (r *renderer) legend(buf *bytes.Buffer, series []Series) {
	x := marginLeft
	y := r.height - 12.0
	for si, s := range series {
		color := seriesColor(s, si)
		fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="12" height="12" fill="%s"/>`+"\n", x, y-10, color)
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f">%s</text>`+"\n", x+16, y, escapeXML(s.Label))
		x += 16 + 8*float64(len(s.Label)) + 24
	}
}

// valueRange finds the plotted value range. Bars always include zero so
// heights stay proportional; lines may track a negative diff series.
func valueRange(series []Series, includeZero bool) (lo, hi int) {
	first := !includeZero
	for _, s := range series {
		for _, v := range s.Values {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}

func scaleY(v, lo, hi int, plotH float64) float64 {
	return plotH - plotH*float64(v-lo)/float64(hi-lo)
}

// barGeometry returns the top offset and height of a bar anchored at
// the zero line, handling negative values.
func barGeometry(v, lo, hi int, plotH float64) (y, h float64) {
	zero := scaleY(0, lo, hi, plotH)
	val := scaleY(v, lo, hi, plotH)
	if v >= 0 {
		return val, zero - val
	}
	return zero, val - zero
}

func seriesColor(s Series, i int) string {
	if s.Color != "" {
		return s.Color
	}
	return defaultPalette[i%len(defaultPalette)]
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
