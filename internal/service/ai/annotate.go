package ai

import (
	"fmt"
	"image"
	"image/color"

	"freshscan/internal/model"
	"freshscan/internal/service/pipeline"

	"gocv.io/x/gocv"
)

var (
	freshColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	rottenColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	otherColor  = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// Annotator renders detection sets on top of the source image.
type Annotator struct{}

// NewAnnotator creates an annotator.
func NewAnnotator() *Annotator {
	return &Annotator{}
}

// Annotate draws each prediction box with its label and confidence and returns
// the result encoded as PNG. Predictions without a box are skipped.
func (a *Annotator) Annotate(img image.Image, predictions []model.Prediction) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %v", err)
	}
	defer mat.Close()

	thickness := max(2, min(mat.Cols(), mat.Rows())/200)

	for _, p := range predictions {
		if p.BBox == nil {
			continue
		}
		c := labelColor(p.Label)

		err = gocv.Rectangle(&mat, p.BBox.Rect(), c, thickness)
		if err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", p.Label, p.Confidence)
		pt := image.Pt(p.BBox.X1+4, max(p.BBox.Y1-5, 12))
		err = gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// labelColor: zielony dla Fresh, czerwony dla Rotten, żółty dla reszty.
func labelColor(label string) color.RGBA {
	switch pipeline.Freshness(label) {
	case "fresh":
		return freshColor
	case "rotten":
		return rottenColor
	default:
		return otherColor
	}
}
