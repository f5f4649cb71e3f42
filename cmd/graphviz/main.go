// Command graphviz is a boundary-only stand-in for the diagram renderer
// spec §1 names out of scope. original_source's
// graphorchestrator/visualization/{representation,visualizer}.py compute a
// BFS level layout from "start" and render it with matplotlib arrow
// patches; this command computes the same BFS levels but renders them as a
// styled terminal listing via lipgloss instead of an image, since spec.md
// excludes the renderer itself and only the boundary is exercised here.
package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/supersteps/graphrun/graph"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	levelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	nodeStyle    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	edgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// bfsLevels computes each node's distance from "start", mirroring
// GraphVisualizer._compute_levels in the Python original.
func bfsLevels(g *graph.Graph) map[string]int {
	levels := map[string]int{graph.StartID: 0}
	queue := []string{graph.StartID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		level := levels[id]

		for _, e := range g.ConcreteOutgoing(id) {
			if _, seen := levels[e.SinkID]; !seen {
				levels[e.SinkID] = level + 1
				queue = append(queue, e.SinkID)
			}
		}
		for _, e := range g.ConditionalOutgoing(id) {
			for _, sink := range e.SinkIDs {
				if _, seen := levels[sink]; !seen {
					levels[sink] = level + 1
					queue = append(queue, sink)
				}
			}
		}
	}
	return levels
}

func render(g *graph.Graph) string {
	levels := bfsLevels(g)

	byLevel := map[int][]string{}
	maxLevel := 0
	for id, lvl := range levels {
		byLevel[lvl] = append(byLevel[lvl], id)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	out := headingStyle.Render("graph layout") + "\n\n"
	for lvl := 0; lvl <= maxLevel; lvl++ {
		ids := byLevel[lvl]
		if len(ids) == 0 {
			continue
		}
		out += levelStyle.Render(fmt.Sprintf("level %d", lvl)) + "\n"
		row := ""
		for _, id := range ids {
			n, _ := g.Node(id)
			label := id
			if n != nil {
				label = fmt.Sprintf("%s (%s)", id, n.Kind)
			}
			row += nodeStyle.Render(label) + " "
		}
		out += row + "\n"
	}

	out += "\n" + headingStyle.Render("edges") + "\n"
	for id := range levels {
		for _, e := range g.ConcreteOutgoing(id) {
			out += edgeStyle.Render(fmt.Sprintf("%s -> %s", e.SourceID, e.SinkID)) + "\n"
		}
		for _, e := range g.ConditionalOutgoing(id) {
			for _, sink := range e.SinkIDs {
				out += edgeStyle.Render(fmt.Sprintf("%s ..> %s (conditional)", e.SourceID, sink)) + "\n"
			}
		}
	}
	return out
}

func main() {
	b := graph.NewGraphBuilder()
	b.AddNode(graph.NewProcessingNode("n1", graph.NewAction(func(_ context.Context, s graph.State) (graph.State, error) { return s, nil })))
	b.AddNode(graph.NewProcessingNode("n2", graph.NewAction(func(_ context.Context, s graph.State) (graph.State, error) { return s, nil })))
	b.AddConcreteEdge(graph.StartID, "n1")
	b.AddConditionalEdge("n1", []string{"n2", graph.EndID}, graph.NewRouter(func(graph.State) string { return "n2" }))
	b.AddConcreteEdge("n2", graph.EndID)

	g, err := b.Build()
	if err != nil {
		fmt.Println("build graph:", err)
		return
	}

	fmt.Println(render(g))
}
