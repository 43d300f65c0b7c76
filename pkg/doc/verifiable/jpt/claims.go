/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jpt

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	josejson "github.com/go-jose/go-jose/v3/json"
)

// ErrClaimPath is returned for claim names which cannot be expressed as a path.
var ErrClaimPath = errors.New("invalid claim path")

// Claims is a JSON object flattened into leaf paths, such as "vc.credentialSubject.degrees[0].name".
type Claims struct {
	Paths  []string
	Values [][]byte
}

// Flatten turns a JSON object into sorted leaf paths and their JSON encoded values. Empty objects and arrays are
// leaves.
func Flatten(obj map[string]interface{}) (*Claims, error) {
	leaves := make(map[string]interface{})

	if err := flatten("", obj, leaves); err != nil {
		return nil, err
	}

	c := &Claims{Paths: make([]string, 0, len(leaves))}

	for path := range leaves {
		c.Paths = append(c.Paths, path)
	}

	sort.Strings(c.Paths)

	for _, path := range c.Paths {
		v, err := josejson.Marshal(leaves[path])
		if err != nil {
			return nil, fmt.Errorf("marshal claim %s: %w", path, err)
		}

		c.Values = append(c.Values, v)
	}

	return c, nil
}

func flatten(prefix string, value interface{}, leaves map[string]interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 0 && prefix != "" {
			leaves[prefix] = v

			return nil
		}

		for k, child := range v {
			if k == "" || strings.ContainsAny(k, ".[]") {
				return fmt.Errorf("%w: %q", ErrClaimPath, k)
			}

			path := k
			if prefix != "" {
				path = prefix + "." + k
			}

			if err := flatten(path, child, leaves); err != nil {
				return err
			}
		}
	case []interface{}:
		if len(v) == 0 {
			leaves[prefix] = v

			return nil
		}

		for i, child := range v {
			if err := flatten(fmt.Sprintf("%s[%d]", prefix, i), child, leaves); err != nil {
				return err
			}
		}
	default:
		leaves[prefix] = v
	}

	return nil
}

// Unflatten rebuilds the JSON object from paths and values. A nil value is an undisclosed claim and is left out;
// arrays keep the order of their disclosed elements.
func Unflatten(paths []string, values [][]byte) (map[string]interface{}, error) {
	if len(paths) != len(values) {
		return nil, fmt.Errorf("%d claim paths for %d values", len(paths), len(values))
	}

	root := newNode()

	for i, path := range paths {
		if values[i] == nil {
			continue
		}

		var v interface{}

		if err := josejson.Unmarshal(values[i], &v); err != nil {
			return nil, fmt.Errorf("claim %s: %w", path, err)
		}

		steps, err := parsePath(path)
		if err != nil {
			return nil, err
		}

		if err = root.set(steps, v); err != nil {
			return nil, fmt.Errorf("claim %s: %w", path, err)
		}
	}

	obj, ok := root.build().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: root is not an object", ErrClaimPath)
	}

	return obj, nil
}

type step struct {
	key   string
	index int
	array bool
}

func parsePath(path string) ([]step, error) {
	var steps []step

	for _, part := range strings.Split(path, ".") {
		name := part
		if i := strings.IndexByte(part, '['); i >= 0 {
			name = part[:i]
		}

		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrClaimPath, path)
		}

		steps = append(steps, step{key: name})

		rest := part[len(name):]

		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("%w: %q", ErrClaimPath, path)
			}

			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("%w: %q", ErrClaimPath, path)
			}

			steps = append(steps, step{index: idx, array: true})
			rest = rest[end+1:]
		}
	}

	return steps, nil
}

// node is an object or array under construction; arrays are sparse until built.
type node struct {
	fields   map[string]*node
	elements map[int]*node
	leaf     interface{}
	isLeaf   bool
}

func newNode() *node {
	return &node{}
}

func (n *node) set(steps []step, v interface{}) error {
	if len(steps) == 0 {
		if n.fields != nil || n.elements != nil {
			return errors.New("value conflicts with nested claims")
		}

		n.leaf, n.isLeaf = v, true

		return nil
	}

	if n.isLeaf {
		return errors.New("nested claim under a value")
	}

	s := steps[0]

	var child *node

	if s.array {
		if n.fields != nil {
			return errors.New("array index on an object")
		}

		if n.elements == nil {
			n.elements = make(map[int]*node)
		}

		if child = n.elements[s.index]; child == nil {
			child = newNode()
			n.elements[s.index] = child
		}
	} else {
		if n.elements != nil {
			return errors.New("object key on an array")
		}

		if n.fields == nil {
			n.fields = make(map[string]*node)
		}

		if child = n.fields[s.key]; child == nil {
			child = newNode()
			n.fields[s.key] = child
		}
	}

	return child.set(steps[1:], v)
}

func (n *node) build() interface{} {
	switch {
	case n.isLeaf:
		return n.leaf
	case n.elements != nil:
		indexes := make([]int, 0, len(n.elements))
		for i := range n.elements {
			indexes = append(indexes, i)
		}

		sort.Ints(indexes)

		arr := make([]interface{}, len(indexes))
		for i, idx := range indexes {
			arr[i] = n.elements[idx].build()
		}

		return arr
	default:
		obj := make(map[string]interface{}, len(n.fields))
		for k, child := range n.fields {
			obj[k] = child.build()
		}

		return obj
	}
}
