// Package graphexport writes the full reaction network as a {nodes, links}
// JSON document: every substance becomes a node, every reaction becomes one
// labeled edge per (reactant, product) pair it connects. Unlike the
// enumerated Pathway results, this artifact carries the whole network a
// material's Reaction Store has accumulated, not just root-reachable routes.
package graphexport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// Node is one substance in the network.
type Node struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Link is one reactant→product edge contributed by a single reaction.
type Link struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Label  string `json:"label"`
}

// Graph is the top-level JSON shape.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Build derives a Graph from every reaction currently in rs, assigning
// stable node IDs in sorted-name order so repeated exports of an unchanged
// store are byte-identical.
func Build(rs *reaction.Store) *Graph {
	ids := make(map[string]int)
	for _, name := range rs.AllNames() {
		if _, ok := ids[name]; !ok {
			ids[name] = len(ids) + 1
		}
	}

	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)
	nodes := make([]Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, Node{ID: ids[name], Name: name})
	}

	reactions := rs.Iterate()
	sort.Slice(reactions, func(i, j int) bool { return reactions[i].ID < reactions[j].ID })

	var links []Link
	for _, r := range reactions {
		for _, reactant := range r.Reactants {
			for _, product := range r.Products {
				links = append(links, Link{
					Source: ids[reactant],
					Target: ids[product],
					Label:  "reaction idx: " + r.ID,
				})
			}
		}
	}

	return &Graph{Nodes: nodes, Links: links}
}

// Save atomically writes g to path as indented JSON (write to temp file,
// then rename, the same discipline internal/store/treesnap and
// internal/cache's JSON file store use).
func Save(path string, g *Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "marshal reaction graph").WithDetail("path=" + path)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeIO, "create graph export directory").WithDetail("dir=" + dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create temp graph export file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "write temp graph export file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "close temp graph export file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "rename temp graph export file").WithDetail("path=" + path)
	}
	return nil
}
