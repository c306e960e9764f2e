/*
Package filesystem implements the virtual file tree the thumbnail commands
walk: mounts, storages with their metadata cache, the storage scanner and
the change propagator.

# Virtual Tree

Every user has a home mount at /<user>/ backed by <data_dir>/<user>. Its
files/ folder holds the user's documents and thumbnails/ holds generated
previews. External storages are mounted below /<user>/files/ and may be
missing at runtime, in which case the mount is kept with a nil storage.

	mounts := filesystem.NewMountManager(dataDir, db, cfg.Mounts)
	if err := mounts.Setup("alice"); err != nil {
	    return err
	}
	root := filesystem.NewRoot(mounts, locks)
	node, err := root.Get(ctx, "/alice/files/Photos")

Paths inside a storage are relative to the storage root, "" being the
root itself. Mount.InternalPath converts between the two.

# Scanner

Scanner reconciles the cache of one storage with the disk. It reports the
entries it confirms (PostScanFile, PostScanFolder) and the cache mutations
it performs (AddToCache, RemoveFromCache) to registered ScanListeners.
Missing parents of a scanned path are registered first, so events may be
reported for folders above the path that was asked for.

By default every folder's direct children are reconciled in their own
transaction. Callers wrapping a whole scan in one transaction disable this
with SetUseTransactions(false).

# Change Propagation

ChangePropagator collects the virtual paths touched during a run and later
recomputes size, mtime and etag of their folders and all ancestors in one
pass, deepest folder first.

# Retry Behavior

Stat, Open and ReadDir retry on NFS stale file handle errors (ESTALE) with
exponential backoff (3 attempts, 50ms to 500ms by default). All other
errors fail immediately. Operation and retry metrics are reported through
the Observer set with SetObserver.
*/
package filesystem
