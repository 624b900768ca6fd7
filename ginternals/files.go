package ginternals

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/goabstract/refdb/ginternals/config"
)

// Files and directories of the reference database.
// We keep the refs paths in unix format since they must be stored
// this way. The backend is in charge of converting this to the current
// system when needed
const (
	refsDirName      = "refs"
	refsTagsRelPath  = refsDirName + "/tags"
	refsHeadsRelPath = refsDirName + "/heads"

	packedRefsFileName = "packed-refs"
	namespacesDirName  = "namespaces"
	configFileName     = "config"
	descriptionName    = "description"
)

// LocalTagFullName returns the full name of a tag
// ex. for `my-tag` returns `refs/tags/my-tag`
func LocalTagFullName(shortName string) string {
	return path.Join(refsTagsRelPath, shortName)
}

// LocalBranchFullName returns the full name of a branch
// ex. for `main` returns `refs/heads/main`
func LocalBranchFullName(shortName string) string {
	return path.Join(refsHeadsRelPath, shortName)
}

// RefFullName returns the UNIX path of a ref
func RefFullName(shortName string) string {
	return path.Join(refsDirName, shortName)
}

// NamespaceRoot returns the directory the reference database is
// rooted at, for the given namespace.
//
// From `man gitnamespaces`:
//
//	namespaces which include a / will expand to a hierarchy
//	of namespaces; for example, GIT_NAMESPACE=foo/bar will store
//	refs under refs/namespaces/foo/refs/namespaces/bar/
//
// An empty namespace roots the database at the git directory itself
func NamespaceRoot(gitDirPath, namespace string) string {
	if namespace == "" {
		return gitDirPath
	}
	root := gitDirPath
	for _, segment := range strings.Split(namespace, "/") {
		root = filepath.Join(root, refsDirName, namespacesDirName, segment)
	}
	return root
}

// RefDBRoot returns the directory holding the refs directory and the
// packed-refs file. It matches the git directory unless a namespace
// is set
func RefDBRoot(cfg *config.Config) string {
	return NamespaceRoot(cfg.GitDirPath, cfg.Namespace)
}

// RefsPath returns the path to the directory that contains all the refs
func RefsPath(cfg *config.Config) string {
	return filepath.Join(RefDBRoot(cfg), refsDirName)
}

// RefPath returns the on-disk path of a reference
func RefPath(cfg *config.Config, name string) string {
	return filepath.Join(RefDBRoot(cfg), filepath.FromSlash(name))
}

// PackedRefsPath returns the local path of the packed-refs file
func PackedRefsPath(cfg *config.Config) string {
	return filepath.Join(RefDBRoot(cfg), packedRefsFileName)
}

// TagsPath returns the path to the directory that contains the tags
func TagsPath(cfg *config.Config) string {
	return filepath.Join(RefsPath(cfg), "tags")
}

// LocalBranchesPath returns the path to the directory containing the
// local branches
func LocalBranchesPath(cfg *config.Config) string {
	return filepath.Join(RefsPath(cfg), "heads")
}

// ConfigPath returns the path to the local config file
func ConfigPath(cfg *config.Config) string {
	return filepath.Join(cfg.GitDirPath, configFileName)
}

// DescriptionFilePath returns the path to the description file
func DescriptionFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.GitDirPath, descriptionName)
}
