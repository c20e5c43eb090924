package plot

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Options controls terminal rendering.
type Options struct {
	Width      int
	Height     int
	ForceColor bool
}

type lineStyle struct {
	name   string
	period int
	on     int
}

type ansiColor struct {
	name string
	code string
}

// layer is one set of braille cells drawn in a single color.
type layer struct {
	cells [][]uint8
	color int
}

const (
	defaultPlotHeight   = 12
	minPlotWidth        = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " │ "
	scaleNote           = "Scaled per series; see min/max below."
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
	markerColor         = 2
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
}

var colorPalette = []ansiColor{
	{name: "cyan", code: "\x1b[36m"},
	{name: "magenta", code: "\x1b[35m"},
	{name: "yellow", code: "\x1b[33m"},
}

// Terminal renders fig as a braille chart. The signal is scaled to its own
// range and the indicator to [0, 1]; events are marked on the signal line.
func Terminal(w io.Writer, fig Figure, opts Options) error {
	if err := fig.validate(); err != nil {
		return err
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	signal := resampleSeries(fig.Signal, width)
	sigMin, sigMax := finiteMinMax(signal)
	if math.Abs(sigMax-sigMin) < 1e-9 {
		sigMin--
		sigMax++
	}
	layers := []layer{{cells: makeCells(height, width), color: 0}}
	drawSeries(layers[0].cells, signal, sigMin, sigMax, lineStyles[0])

	if fig.Indicator != nil {
		l := layer{cells: makeCells(height, width), color: 1}
		drawSeries(l.cells, resampleSeries(fig.Indicator, width), 0, 1, lineStyles[1])
		layers = append(layers, l)
	}
	events := fig.visibleEvents()
	if len(events) > 0 {
		l := layer{cells: makeCells(height, width), color: markerColor}
		for _, e := range events {
			col := e * width / len(fig.Signal)
			if col >= width {
				col = width - 1
			}
			v := signal[col]
			if math.IsNaN(v) {
				continue
			}
			drawMarker(l.cells, col*2, valueToRow(v, sigMin, sigMax, height*4))
		}
		layers = append(layers, l)
	}

	useColor := shouldUseColor(w, opts.ForceColor)
	if heading := fig.Heading(); heading != "" {
		if _, err := fmt.Fprintln(w, heading); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, scaleNote); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: min=%.3f max=%.3f\n", fig.label(), sigMin, sigMax); err != nil {
		return err
	}
	if fig.Indicator != nil {
		if _, err := fmt.Fprintln(w, "indicator: min=0.000 max=1.000"); err != nil {
			return err
		}
	}

	leftAxisWidth := len(axisLabelTop)
	axisLabels := makeAxisLabels(height)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", leftAxisWidth, axisLabels[y], axisSeparator))
		for x := 0; x < width; x++ {
			mask, colorIdx := composeCell(layers, x, y)
			ch := brailleFromMask(mask)
			if useColor && colorIdx >= 0 {
				row.WriteString(colorPalette[colorIdx%len(colorPalette)].code)
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}

	start := float64(fig.Offset) / fig.Fs
	end := float64(fig.Offset+len(fig.Signal)-1) / fig.Fs
	if _, err := fmt.Fprintln(w, timeAxis(start, end, width)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, renderLegend(fig, len(events), useColor)); err != nil {
		return err
	}
	return nil
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	plotWidth := totalWidth - axisWidth
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func timeAxis(start, end float64, width int) string {
	left := fmt.Sprintf("%.2fs", start)
	right := fmt.Sprintf("%.2fs", end)
	pad := strings.Repeat(" ", len(axisLabelTop)+utf8.RuneCountInString(axisSeparator))
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return pad + left + strings.Repeat(" ", gap) + right
}

func renderLegend(fig Figure, events int, useColor bool) string {
	marker := brailleFromMask(0x01)
	paint := func(label string, color int) string {
		if !useColor {
			return label
		}
		return colorPalette[color%len(colorPalette)].code + label + colorReset
	}
	parts := []string{paint(fmt.Sprintf("%c %s (%s)", marker, fig.label(), lineStyles[0].name), 0)}
	if fig.Indicator != nil {
		parts = append(parts, paint(fmt.Sprintf("%c indicator (%s)", marker, lineStyles[1].name), 1))
	}
	if events > 0 {
		parts = append(parts, paint(fmt.Sprintf("x events (%d)", events), markerColor))
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func makeAxisLabels(height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

// composeCell merges the layers at one cell. Later layers win the color.
func composeCell(layers []layer, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for _, l := range layers {
		if y < 0 || y >= len(l.cells) || x < 0 || x >= len(l.cells[y]) {
			continue
		}
		if l.cells[y][x] == 0 {
			continue
		}
		colorIdx = l.color
		mask |= l.cells[y][x]
	}
	return mask, colorIdx
}

func drawSeries(cells [][]uint8, values []float64, minVal, maxVal float64, style lineStyle) {
	rows := len(cells) * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		if math.IsNaN(v) {
			prevX, prevY = -1, -1
			continue
		}
		px, py := x*2, valueToRow(v, minVal, maxVal, rows)
		if prevX >= 0 {
			drawLine(prevX, prevY, px, py, func(dx, dy int) {
				if style.shouldPlot(dx) {
					setBrailleDot(cells, dx, dy)
				}
			})
		} else if style.shouldPlot(px) {
			setBrailleDot(cells, px, py)
		}
		prevX, prevY = px, py
	}
}

// drawMarker draws a small x centred on (px, py).
func drawMarker(cells [][]uint8, px, py int) {
	for _, d := range [][2]int{{0, 0}, {-1, -1}, {1, 1}, {-1, 1}, {1, -1}} {
		setBrailleDot(cells, px+d[0], py+d[1])
	}
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

// resampleSeries fits values to width points, averaging when shrinking and
// interpolating linearly when stretching. NaN samples are ignored in
// averages.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	if len(values) == width {
		copy(out, values)
		return out
	}
	if len(values) > width {
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			n := 0
			for _, v := range values[start:end] {
				if math.IsNaN(v) {
					continue
				}
				sum += v
				n++
			}
			if n == 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = sum / float64(n)
		}
		return out
	}
	if width == 1 || len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func finiteMinMax(values []float64) (float64, float64) {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.IsInf(minVal, 1) {
		return 0, 0
	}
	return minVal, maxVal
}

func valueToRow(v, minVal, maxVal float64, height int) int {
	if height <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

// brailleDotMask maps a dot inside a 2x4 braille cell to its bit.
func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	if x < 0 || x > 1 || y < 0 || y > 3 {
		return 0
	}
	return masks[x][y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
