// Package pack archives finished build trees into distributable bundles.
//
// An [Archiver] selects files from a tree with a glob manifest (doublestar
// patterns such as "lib/**"), writes them to a zstd-compressed tar archive
// named deterministically from (platform, configuration), and reports the
// archive's content digest. Tar headers carry no timestamps or system
// metadata, so archiving the same tree twice produces byte-identical
// output.
package pack
