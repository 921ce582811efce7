// Package replay drives the navigation service from a script of editor
// events so that training records can be generated offline.
//
// Scripts are YAML or TOML, chosen by file extension:
//
//	project:
//	  name: demo
//	  path: ./testdata/tree
//	seed: 7
//	events:
//	  - {action: select, file: main.go}
//	  - {action: open, file: pkg/util.go}
//	  - {action: select, file: pkg/util.go}
//
// Background units run inline, so a replay is deterministic for a given
// tree, seed or draw list.
package replay
