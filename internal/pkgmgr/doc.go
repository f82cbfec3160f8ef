// Package pkgmgr executes the package-manager side of linking: running a
// package's build step, registering a global link, and linking a package into
// a project. It supports npm, yarn, and pnpm, plus a "symlink" mode that
// writes node_modules links directly without a package manager. New selects
// the implementation from the configured manager name.
package pkgmgr
