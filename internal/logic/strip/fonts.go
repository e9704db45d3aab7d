package strip

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

// Family is a font choice for a text line. Each family maps onto the Go
// font set, which ships without a true serif.
type Family struct {
	Key  string `json:"key"`
	Name string `json:"name"`

	regular, bold []byte
}

// Families lists the font choices. The first is the default for every line.
var Families = []Family{
	{Key: "serif", Name: "Go Medium", regular: gomedium.TTF, bold: gobold.TTF},
	{Key: "sans", Name: "Go Regular", regular: goregular.TTF, bold: gobold.TTF},
	{Key: "mono", Name: "Go Mono", regular: gomono.TTF, bold: gomonobold.TTF},
	{Key: "georgia", Name: "Go Italic", regular: goitalic.TTF, bold: gobolditalic.TTF},
	{Key: "times", Name: "Go Small Caps", regular: gosmallcaps.TTF, bold: gobold.TTF},
}

// DefaultFamily is used for lines with no font set.
const DefaultFamily = "serif"

func familyByKey(key string) (Family, bool) {
	for _, f := range Families {
		if f.Key == key {
			return f, true
		}
	}
	return Family{}, false
}

var (
	parsedMu sync.Mutex
	parsed   = map[*byte]*opentype.Font{}
)

// parse returns the parsed font for ttf, parsing it once.
func parse(ttf []byte) (*opentype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[&ttf[0]]; ok {
		return f, nil
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	parsed[&ttf[0]] = f
	return f, nil
}

// face opens a face of family at px pixels. Faces are not safe for
// concurrent use; callers close them when done.
func (f Family) face(bold bool, px float64) (font.Face, *opentype.Font, error) {
	ttf := f.regular
	if bold {
		ttf = f.bold
	}
	otf, err := parse(ttf)
	if err != nil {
		return nil, nil, err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    px,
		DPI:     72, // Size is then in pixels
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("font %s: %w", f.Key, err)
	}
	return face, otf, nil
}
