package series

import "fmt"

// Identity is the stable visual identity of a series, assigned once when its
// key is registered so it never depends on fetch completion order.
type Identity struct {
	Index int    `json:"index"`
	Color string `json:"color"`
}

// palette holds the base hues; the first two match the classic red/green pair.
var palette = [][3]int{
	{255, 0, 0},
	{11, 212, 0},
	{31, 119, 180},
	{255, 127, 14},
	{148, 103, 189},
	{140, 86, 75},
	{227, 119, 194},
	{127, 127, 127},
	{188, 189, 34},
	{23, 190, 207},
	{57, 59, 121},
	{214, 97, 107},
}

const (
	liveAlpha      = 0.5
	referenceAlpha = 1.0
)

// colorFor returns an rgba() string for the palette slot idx.
func colorFor(idx int, alpha float64) string {
	rgb := palette[idx%len(palette)]
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", rgb[0], rgb[1], rgb[2], alpha)
}
