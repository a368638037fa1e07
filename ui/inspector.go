package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// CreatureView holds the values shown for the selected creature.
type CreatureView struct {
	ID          int
	Generation  int
	Rank        int
	Percentile  float32 // 0 is the best creature
	Evaluated   bool
	FitnessCM   float64
	SpeciesName string
	SpeciesCol  rl.Color
	Parent      int // -1 for generation zero
	Locus       int // -1 when the creature carries no big mutation
	Living      bool
	Frame       int
	DistanceCM  float64
}

// creaturePanel describes the inspector layout.
var creaturePanel = []SectionDescriptor{
	{
		ID:    "identity",
		Title: "Creature",
		Fields: []FieldDescriptor{
			{ID: "id", Label: "ID", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprint(d.(CreatureView).ID)
			}},
			{ID: "generation", Label: "Generation", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprint(d.(CreatureView).Generation)
			}},
			{ID: "species", Label: "Species", Widget: WidgetText, TextGetter: func(d any) string {
				return d.(CreatureView).SpeciesName
			}},
			{ID: "species_color", Label: "Colour", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
				return d.(CreatureView).SpeciesCol
			}},
			{ID: "parent", Label: "Parent", Widget: WidgetText, TextGetter: func(d any) string {
				if p := d.(CreatureView).Parent; p >= 0 {
					return fmt.Sprint(p)
				}
				return "none"
			}},
			{ID: "locus", Label: "Mutation", Widget: WidgetText,
				Visible: func(d any) bool { return d.(CreatureView).Locus >= 0 },
				TextGetter: func(d any) string {
					return fmt.Sprintf("gene %d", d.(CreatureView).Locus)
				}},
		},
	},
	{
		ID:      "result",
		Title:   "Trial",
		Visible: func(d any) bool { return d.(CreatureView).Evaluated },
		Fields: []FieldDescriptor{
			{ID: "rank", Label: "Rank", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprint(d.(CreatureView).Rank)
			}},
			{ID: "percentile", Label: "Percentile", Widget: WidgetBar, Getter: func(d any) float32 {
				return 1 - d.(CreatureView).Percentile
			}},
			{ID: "fitness", Label: "Distance", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprintf("%.1f cm", d.(CreatureView).FitnessCM)
			}},
			{ID: "living", Label: "Survived", Widget: WidgetText, TextGetter: func(d any) string {
				if d.(CreatureView).Living {
					return "yes"
				}
				return "no"
			}},
		},
	},
	{
		ID:    "replay",
		Title: "Replay",
		Fields: []FieldDescriptor{
			{ID: "frame", Label: "Frame", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprint(d.(CreatureView).Frame)
			}},
			{ID: "distance", Label: "Walked", Widget: WidgetText, TextGetter: func(d any) string {
				return fmt.Sprintf("%.1f cm", d.(CreatureView).DistanceCM)
			}},
		},
	},
}

// Inspector renders the creature inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel and returns the Y below it.
func (ins *Inspector) Draw(view CreatureView) int32 {
	r := ins.renderer
	padding := r.Theme.Padding

	rows := 0
	for _, sd := range creaturePanel {
		if sd.Visible == nil || sd.Visible(view) {
			rows += len(sd.Fields) + 1
		}
	}
	height := int32(rows)*(r.Theme.LineHeight+2) + padding*2
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + padding
	for _, sd := range creaturePanel {
		y = r.DrawSection(ins.x+padding, y, sd, view, ins.width-padding*2)
	}
	return ins.y + height
}
