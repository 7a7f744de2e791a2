package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Subdirectories present at both the dataset and the distribution level.
const (
	DirParameters      = "parameters"
	DirResults         = "results"
	DirExecutionOutput = "execution_output"
	DirPlots           = "plots"
)

// DirElectronicStructure holds raw electronic structure input for a dataset.
const DirElectronicStructure = "electronic_structure"

// SubDirs is the fixed set of subdirectories every namespace level carries.
var SubDirs = []string{DirParameters, DirResults, DirExecutionOutput, DirPlots}

// Namespace identifies the storage subtree for one dataset/distribution pair.
// A Namespace returned by Resolve always has its directories in place.
type Namespace struct {
	root           string
	datasetID      int
	distributionID int
}

// InvalidRootError is returned when the namespace root is unusable.
type InvalidRootError struct {
	Root   string
	Reason string
	Err    error
}

func (e *InvalidRootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid root %q: %s: %v", e.Root, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid root %q: %s", e.Root, e.Reason)
}

func (e *InvalidRootError) Unwrap() error {
	return e.Err
}

// IsInvalidRoot reports whether err is an InvalidRootError.
func IsInvalidRoot(err error) bool {
	var ire *InvalidRootError
	return errors.As(err, &ire)
}

// Resolve returns the namespace for (root, datasetID, distributionID) and
// ensures its directory tree exists. Safe to call repeatedly and concurrently.
//
// root must already exist and be a directory.
func Resolve(root string, datasetID, distributionID int) (*Namespace, error) {
	if datasetID < 0 || distributionID < 0 {
		return nil, fmt.Errorf("resolve namespace: negative id (dataset=%d, distribution=%d)", datasetID, distributionID)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &InvalidRootError{Root: root, Reason: "cannot stat", Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidRootError{Root: root, Reason: "not a directory"}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &InvalidRootError{Root: root, Reason: "cannot make absolute", Err: err}
	}

	ns := &Namespace{root: abs, datasetID: datasetID, distributionID: distributionID}
	if err := ns.ensureDirs(); err != nil {
		return nil, err
	}
	return ns, nil
}

// WithDistribution resolves a sibling namespace under the same dataset.
func (n *Namespace) WithDistribution(distributionID int) (*Namespace, error) {
	return Resolve(n.root, n.datasetID, distributionID)
}

// Root returns the absolute root directory.
func (n *Namespace) Root() string { return n.root }

// DatasetID returns the dataset id.
func (n *Namespace) DatasetID() int { return n.datasetID }

// DistributionID returns the sampling distribution id.
func (n *Namespace) DistributionID() int { return n.distributionID }

func (n *Namespace) String() string {
	return fmt.Sprintf("%s[D%d,R%d]", n.root, n.datasetID, n.distributionID)
}

// DatasetDir returns root/dataset_{D}.
func (n *Namespace) DatasetDir() string {
	return filepath.Join(n.root, fmt.Sprintf("dataset_%d", n.datasetID))
}

// DistributionDir returns root/dataset_{D}/distribution_{R}.
func (n *Namespace) DistributionDir() string {
	return filepath.Join(n.DatasetDir(), fmt.Sprintf("distribution_%d", n.distributionID))
}

// DatasetSubDir returns one of SubDirs under the dataset directory.
func (n *Namespace) DatasetSubDir(name string) string {
	return filepath.Join(n.DatasetDir(), name)
}

// DistributionSubDir returns one of SubDirs under the distribution directory.
func (n *Namespace) DistributionSubDir(name string) string {
	return filepath.Join(n.DistributionDir(), name)
}

// ElectronicStructureDir returns the dataset's electronic structure directory.
func (n *Namespace) ElectronicStructureDir() string {
	return filepath.Join(n.DatasetDir(), DirElectronicStructure)
}

// Dirs lists every directory the namespace guarantees, parents first.
func (n *Namespace) Dirs() []string {
	dirs := make([]string, 0, 3+2*len(SubDirs))
	dirs = append(dirs, n.DatasetDir(), n.ElectronicStructureDir())
	for _, sub := range SubDirs {
		dirs = append(dirs, n.DatasetSubDir(sub))
	}
	dirs = append(dirs, n.DistributionDir())
	for _, sub := range SubDirs {
		dirs = append(dirs, n.DistributionSubDir(sub))
	}
	return dirs
}

// ensureDirs creates any missing directory. Never removes anything.
func (n *Namespace) ensureDirs() error {
	for _, dir := range n.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create namespace directory %s: %w", dir, err)
		}
	}
	return nil
}
