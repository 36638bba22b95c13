//go:build !unix && !windows

package mirror

import "os"

// No advisory locking on this platform; only one process should use the
// mirror at a time.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
