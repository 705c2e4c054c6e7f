// Package registry provides a typed client for the remote Windows
// registry, implemented over WMI's StdRegProv class (§4.6). Every
// operation is a WSMan Invoke against wsman.ResourceURIStdRegProv,
// with out-parameters decoded via internal/dictify.
package registry

import "fmt"

// Tree identifies one of the registry's predefined root hives, using
// the same numeric codes StdRegProv expects for its hDefKey parameter.
type Tree uint32

const (
	ClassesRoot  Tree = 0x80000000
	CurrentUser  Tree = 0x80000001
	LocalMachine Tree = 0x80000002
	Users        Tree = 0x80000003
	CurrentConfig Tree = 0x80000005
)

// String renders the tree using its conventional short name.
func (t Tree) String() string {
	switch t {
	case ClassesRoot:
		return "HKCR"
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	case Users:
		return "HKU"
	case CurrentConfig:
		return "HKCC"
	default:
		return fmt.Sprintf("Tree(0x%08x)", uint32(t))
	}
}

// Key names a registry key: a hive plus a backslash-separated subpath
// beneath it (no leading or trailing backslash).
type Key struct {
	Tree Tree
	Path string
}

// NewKey builds a Key from a tree and path.
func NewKey(tree Tree, path string) Key {
	return Key{Tree: tree, Path: path}
}

// Key returns the key for subpath nested beneath k.
func (k Key) Key(subpath string) Key {
	if k.Path == "" {
		return Key{Tree: k.Tree, Path: subpath}
	}
	if subpath == "" {
		return k
	}
	return Key{Tree: k.Tree, Path: k.Path + `\` + subpath}
}

func (k Key) String() string {
	if k.Path == "" {
		return k.Tree.String()
	}
	return k.Tree.String() + `\` + k.Path
}
