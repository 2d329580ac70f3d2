package scripts

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
)

const (
	PhaseSchema Phase = iota
	PhaseSubdirectoryBatch
	PhaseRootRemainder
)

// ErrScriptTreeMissing is returned when the script root does not exist.
var ErrScriptTreeMissing = errors.New("script tree missing")

type (
	// Phase is the stage of the execution order a script belongs to.
	Phase int

	// Script is a single SQL file scheduled for execution.
	Script struct {
		// Path is the file's location on disk.
		Path string `json:"path"`

		// Rel is the slash separated path relative to the script root.
		Rel string `json:"rel"`

		// Phase is the ordering stage the script was scheduled in.
		Phase Phase `json:"phase"`
	}
)

// Discover returns the scripts under root in execution order.
//
// Example usage:
//
//	list, err := scripts.Discover("server/db")
//	if errors.Is(err, scripts.ErrScriptTreeMissing) {
//		// nothing to bootstrap
//	}
//
//	for _, s := range list {
//		fmt.Println(s.Phase, s.Rel)
//	}
func Discover(root string) ([]*Script, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrScriptTreeMissing, "%s does not exist", root)
		}

		return nil, errors.Wrapf(err, "failed to stat script root: %s", root)
	}

	if !info.IsDir() {
		return nil, errors.Wrapf(ErrScriptTreeMissing, "%s is not a directory", root)
	}

	return DiscoverFS(os.DirFS(root), root)
}

// DiscoverFS orders the scripts found in fsys. root is joined with each script's
// relative path to produce Script.Path.
func DiscoverFS(fsys fs.FS, root string) ([]*Script, error) {
	entries, err := readDir(fsys, ".")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read script root: %s", root)
	}

	var (
		schema    *Script
		batches   []*Script
		remainder []*Script
	)

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			files, err := readDir(fsys, name)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read script directory: %s", name)
			}

			for _, f := range files {
				if isScript(f) {
					batches = append(batches, newScript(root, path.Join(name, f.Name()), PhaseSubdirectoryBatch))
				}
			}
		case !isScript(entry):
			continue
		case name == consts.SchemaFile:
			schema = newScript(root, name, PhaseSchema)
		default:
			remainder = append(remainder, newScript(root, name, PhaseRootRemainder))
		}
	}

	res := make([]*Script, 0, len(batches)+len(remainder)+1)
	if schema != nil {
		res = append(res, schema)
	}

	res = append(res, batches...)
	return append(res, remainder...), nil
}

func (p Phase) String() string {
	switch p {
	case PhaseSchema:
		return "schema"
	case PhaseSubdirectoryBatch:
		return "subdirectory"
	case PhaseRootRemainder:
		return "root"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// readDir lists visible entries of dir sorted by name.
func readDir(fsys fs.FS, dir string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	entries = slices.DeleteFunc(entries, func(e fs.DirEntry) bool {
		return strings.HasPrefix(e.Name(), ".")
	})

	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return entries, nil
}

func isScript(e fs.DirEntry) bool {
	return !e.IsDir() && strings.HasSuffix(e.Name(), consts.ScriptExt)
}

func newScript(root, rel string, phase Phase) *Script {
	return &Script{
		Path:  filepath.Join(root, filepath.FromSlash(rel)),
		Rel:   rel,
		Phase: phase,
	}
}
