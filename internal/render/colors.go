package render

import "image/color"

var (
	// Black is the background colour.
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	// Red is the default skeleton colour.
	Red = color.RGBA{R: 255, G: 0, B: 0, A: 255}

	// userColors is the palette used when each user gets their own colour.
	userColors = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
		{R: 132, G: 56, B: 255, A: 255},  // #8438FF
		{R: 255, G: 55, B: 199, A: 255},  // #FF37C7
		{R: 255, G: 157, B: 151, A: 255}, // #FF9D97
		{R: 146, G: 204, B: 23, A: 255},  // #92CC17
	}
)

// UserColor returns the palette colour for a user id.
func UserColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return userColors[id%len(userColors)]
}
