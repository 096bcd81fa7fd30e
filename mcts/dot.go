package mcts

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// DumpDOT renders the search tree rooted at the current root to
// Graphviz DOT, labeling each node with its visit count and mean value,
// for debug inspection of a finished search. Limited to maxDepth levels
// below the root to keep large trees legible. Exercises the teacher's
// gographviz dependency, declared in go.mod but unused by any retrieved
// teacher source file.
func (t *Tree) DumpDOT(maxDepth int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("search"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	var counter int
	var walk func(n *Node, depth int) string
	walk = func(n *Node, depth int) string {
		id := "n" + strconv.Itoa(counter)
		counter++
		label := fmt.Sprintf("\"N=%d v=%.3f\"", n.Visits(), n.MeanValue())
		attrs := map[string]string{"label": label}
		if n.terminal {
			attrs["shape"] = "doublecircle"
		}
		_ = g.AddNode("search", id, attrs)

		if depth >= maxDepth {
			return id
		}
		n.mu.Lock()
		children := append([]*Node(nil), n.children...)
		n.mu.Unlock()
		for _, c := range children {
			if c == nil || c.Visits() == 0 {
				continue
			}
			childID := walk(c, depth+1)
			_ = g.AddEdge(id, childID, true, nil)
		}
		return id
	}
	walk(t.root, 0)

	return g.String(), nil
}
