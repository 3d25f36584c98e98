// Package treesnap serializes and restores retrosynthesis trees to disk
// under tree_pi/<material>_(wo|w)_exp[_alg].gob. It uses encoding/gob over
// a snapshot shape that drops the Node.Parent back-reference before
// encoding (Parent pointers would make the graph cyclic to a naive
// encoder) and rebuilds it on Load with a single top-down pass.
package treesnap

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/retrotree"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// nodeSnapshot mirrors retrotree.Node without the Parent back-reference.
type nodeSnapshot struct {
	Substance     string
	ReactionIndex string
	IsRoot        bool
	AncestorSet   []string
	ReactionLine  []string
	Children      []*nodeSnapshot
	IsLeaf        bool
}

// document is the top-level encoded shape: the root node snapshot plus the
// unexpandable set, since both are part of Tree.
type document struct {
	Root         *nodeSnapshot
	Unexpandable []string
}

// Save atomically writes tree to path (write to temp file, then rename,
// the same discipline as internal/cache's atomic writes).
func Save(path string, tree *retrotree.Tree) error {
	doc := document{
		Root:         toSnapshot(tree.Root),
		Unexpandable: sortedKeys(tree.Unexpandable),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&doc); err != nil {
		return errors.Wrap(err, errors.CodeTreeSerializationError, "encode tree snapshot").WithDetail("path=" + path)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeIO, "create tree snapshot directory").WithDetail("dir=" + dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create temp tree snapshot file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "write temp tree snapshot file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "close temp tree snapshot file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "rename temp tree snapshot file").WithDetail("path=" + path)
	}
	return nil
}

// Load restores a Tree previously written by Save, rebuilding Parent
// pointers top-down from the root.
func Load(path string) (*retrotree.Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read tree snapshot").WithDetail("path=" + path)
	}

	var doc document
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeTreeSerializationError, "decode tree snapshot").WithDetail("path=" + path)
	}

	unexpandable := make(map[string]struct{}, len(doc.Unexpandable))
	for _, s := range doc.Unexpandable {
		unexpandable[s] = struct{}{}
	}

	return &retrotree.Tree{
		Root:         fromSnapshot(doc.Root, nil),
		Unexpandable: unexpandable,
	}, nil
}

// SnapshotPath builds the conventional tree-snapshot path for material,
// encoding the expansion/alignment stage in the file name.
func SnapshotPath(dir, material string, expanded, aligned bool) string {
	stage := "wo_exp"
	if expanded {
		stage = "w_exp"
	}
	suffix := ""
	if aligned {
		suffix = "_alg"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s.gob", material, stage, suffix))
}

func toSnapshot(n *retrotree.Node) *nodeSnapshot {
	if n == nil {
		return nil
	}
	snap := &nodeSnapshot{
		Substance:     n.Substance,
		ReactionIndex: n.ReactionIndex,
		IsRoot:        n.IsRoot,
		AncestorSet:   sortedKeys(n.AncestorSet),
		ReactionLine:  append([]string{}, n.ReactionLine...),
		IsLeaf:        n.IsLeaf,
	}
	for _, c := range n.Children {
		snap.Children = append(snap.Children, toSnapshot(c))
	}
	return snap
}

func fromSnapshot(snap *nodeSnapshot, parent *retrotree.Node) *retrotree.Node {
	if snap == nil {
		return nil
	}
	ancestorSet := make(map[string]struct{}, len(snap.AncestorSet))
	for _, s := range snap.AncestorSet {
		ancestorSet[s] = struct{}{}
	}
	node := &retrotree.Node{
		Substance:     snap.Substance,
		ReactionIndex: snap.ReactionIndex,
		IsRoot:        snap.IsRoot,
		Parent:        parent,
		AncestorSet:   ancestorSet,
		ReactionLine:  append([]string{}, snap.ReactionLine...),
		IsLeaf:        snap.IsLeaf,
	}
	for _, c := range snap.Children {
		node.Children = append(node.Children, fromSnapshot(c, node))
	}
	return node
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
