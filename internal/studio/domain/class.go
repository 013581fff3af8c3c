// Package domain defines the figure taxonomy: the classes a figure can be
// classified into, their display labels and lexicons, and the
// Classification result shared across classifiers, storage, and the API.
package domain

import "strings"

// Class identifies a figure category.
type Class string

const (
	ClassBarChart            Class = "bar_chart"
	ClassPieChart            Class = "pie_chart"
	ClassLineGraph           Class = "line_graph"
	ClassScatterPlot         Class = "scatter_plot"
	ClassHistogram           Class = "histogram"
	ClassBoxPlot             Class = "box_plot"
	ClassHeatmap             Class = "heatmap"
	ClassFlowchart           Class = "flowchart"
	ClassOrganizationalChart Class = "organizational_chart"
	ClassNetworkDiagram      Class = "network_diagram"
	ClassScientificDiagram   Class = "scientific_diagram"
	ClassMedicalDiagram      Class = "medical_diagram"
	ClassEngineeringDiagram  Class = "engineering_diagram"
	ClassMap                 Class = "map"
	ClassFloorPlan           Class = "floor_plan"
	ClassTimeline            Class = "timeline"
	ClassTable               Class = "table"
	ClassInfographic         Class = "infographic"
	ClassPhotograph          Class = "photograph"
	ClassScreenshot          Class = "screenshot"
	ClassLogo                Class = "logo"
	ClassChartOther          Class = "chart_other"
	ClassDiagramOther        Class = "diagram_other"
	ClassUnknown             Class = "unknown"
)

// classInfo carries the per-class display metadata and keyword lexicon.
type classInfo struct {
	emoji    string
	brief    string
	keywords []string
}

var classes = map[Class]classInfo{
	ClassBarChart: {
		emoji:    "📊",
		brief:    "Vertical or horizontal bars used to compare values.",
		keywords: []string{"bar chart", "bar graph", "column chart", "histogram", "bars"},
	},
	ClassPieChart: {
		emoji:    "🥧",
		brief:    "Circular chart divided into slices.",
		keywords: []string{"pie chart", "pie graph", "circular chart", "donut chart"},
	},
	ClassLineGraph: {
		emoji:    "📈",
		brief:    "Continuous line to show trends over time or data.",
		keywords: []string{"line chart", "line graph", "trend", "curve", "time series"},
	},
	ClassScatterPlot: {
		emoji:    "📉",
		brief:    "Many small dots or shapes scattered across axes.",
		keywords: []string{"scatter plot", "scatter chart", "dots", "points", "correlation"},
	},
	ClassHistogram: {
		emoji:    "📊",
		brief:    "Bars showing the frequency distribution of values.",
		keywords: []string{"histogram", "distribution", "frequency", "bins"},
	},
	ClassBoxPlot: {
		emoji:    "📦",
		brief:    "Boxes and whiskers summarizing value quartiles.",
		keywords: []string{"box plot", "boxplot", "whisker", "quartile"},
	},
	ClassHeatmap: {
		emoji:    "🌡️",
		brief:    "Color-intensity grid encoding value magnitude.",
		keywords: []string{"heatmap", "heat map", "intensity", "color map", "gradient"},
	},
	ClassFlowchart: {
		emoji:    "🔁",
		brief:    "Connected shapes representing steps or decisions.",
		keywords: []string{"flowchart", "flow chart", "process", "workflow", "diagram"},
	},
	ClassOrganizationalChart: {
		emoji:    "🗂️",
		brief:    "Boxes in a hierarchy showing reporting structure.",
		keywords: []string{"organizational chart", "org chart", "hierarchy", "structure"},
	},
	ClassNetworkDiagram: {
		emoji:    "🔗",
		brief:    "Nodes and edges showing connections.",
		keywords: []string{"network", "graph", "nodes", "connections", "tree"},
	},
	ClassScientificDiagram: {
		emoji:    "🧪",
		brief:    "Symmetric, structured layout with labeled parts.",
		keywords: []string{"molecule", "chemical", "formula", "scientific", "laboratory"},
	},
	ClassMedicalDiagram: {
		emoji:    "🫀",
		brief:    "Anatomical or clinical illustration.",
		keywords: []string{"anatomy", "medical", "body", "organ", "health"},
	},
	ClassEngineeringDiagram: {
		emoji:    "📐",
		brief:    "Technical schematic or blueprint.",
		keywords: []string{"circuit", "schematic", "technical", "blueprint", "engineering"},
	},
	ClassMap: {
		emoji:    "🗺️",
		brief:    "Irregular shapes and colors suggest geographic layout.",
		keywords: []string{"map", "geographic", "location", "street", "geography", "satellite"},
	},
	ClassFloorPlan: {
		emoji:    "🏠",
		brief:    "Room and building layout drawing.",
		keywords: []string{"floor plan", "blueprint", "layout", "room", "building"},
	},
	ClassTimeline: {
		emoji:    "🕒",
		brief:    "Horizontal layout showing chronological events.",
		keywords: []string{"timeline", "chronology", "sequence", "history", "events"},
	},
	ClassTable: {
		emoji:    "📋",
		brief:    "Grid of cells with rows and columns of text.",
		keywords: []string{"table", "grid", "rows", "columns", "data", "spreadsheet"},
	},
	ClassInfographic: {
		emoji:    "📌",
		brief:    "Mixed graphics and statistics presenting information.",
		keywords: []string{"infographic", "information", "visual", "statistics"},
	},
	ClassPhotograph: {
		emoji:    "📷",
		brief:    "High color and texture variation, likely image capture.",
		keywords: []string{"photo", "picture", "image", "real", "camera", "scene"},
	},
	ClassScreenshot: {
		emoji:    "🖥️",
		brief:    "Captured software interface.",
		keywords: []string{"screenshot", "screen", "interface", "software", "application"},
	},
	ClassLogo: {
		emoji:    "🚩",
		brief:    "Brand symbol or emblem.",
		keywords: []string{"logo", "brand", "symbol", "emblem", "company"},
	},
	ClassChartOther: {
		emoji:    "🔢",
		brief:    "Data visualization outside the named chart types.",
		keywords: []string{"chart", "graph", "visualization", "data"},
	},
	ClassDiagramOther: {
		emoji:    "📝",
		brief:    "Generic illustration, often grayscale or text-heavy.",
		keywords: []string{"diagram", "illustration", "drawing", "figure"},
	},
	ClassUnknown: {
		emoji:    "❓",
		brief:    "Could not classify figure reliably.",
		keywords: []string{"unclear", "unknown", "indeterminate"},
	},
}

// classOrder keeps listings stable for the API and UI.
var classOrder = []Class{
	ClassBarChart, ClassPieChart, ClassLineGraph, ClassScatterPlot,
	ClassHistogram, ClassBoxPlot, ClassHeatmap, ClassFlowchart,
	ClassOrganizationalChart, ClassNetworkDiagram, ClassScientificDiagram,
	ClassMedicalDiagram, ClassEngineeringDiagram, ClassMap, ClassFloorPlan,
	ClassTimeline, ClassTable, ClassInfographic, ClassPhotograph,
	ClassScreenshot, ClassLogo, ClassChartOther, ClassDiagramOther,
	ClassUnknown,
}

// All returns every class in display order.
func All() []Class {
	out := make([]Class, len(classOrder))
	copy(out, classOrder)
	return out
}

// Valid reports whether the class belongs to the taxonomy.
func (c Class) Valid() bool {
	_, ok := classes[c]
	return ok
}

// Emoji returns the class marker glyph.
func (c Class) Emoji() string {
	if info, ok := classes[c]; ok {
		return info.emoji
	}
	return classes[ClassUnknown].emoji
}

// Label renders the class for display: emoji plus title-cased name.
func (c Class) Label() string {
	name := strings.ReplaceAll(string(c), "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return c.Emoji() + " " + strings.Join(words, " ")
}

// Brief returns the one-line class description.
func (c Class) Brief() string {
	if info, ok := classes[c]; ok {
		return info.brief
	}
	return classes[ClassUnknown].brief
}

// Keywords returns the caption lexicon for the class.
func (c Class) Keywords() []string {
	info, ok := classes[c]
	if !ok {
		return nil
	}
	out := make([]string, len(info.keywords))
	copy(out, info.keywords)
	return out
}

// ParseClass resolves a taxonomy class from its wire name.
func ParseClass(s string) (Class, bool) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, true
	}
	return ClassUnknown, false
}
