/*
Package thumbnails implements the create-thumbnails and delete-thumbnails
commands.

# Runs

Both commands share one orchestration: the targets are resolved from a
--path (which also names the user), the --all flag or a user list; every
user is then processed in turn and a summary table is printed at the end.
Create and Delete return the RunStatistics of the run.

Errors come in two sorts. A CommandError (ErrInput, ErrForbidden,
ErrNotFound) carries a message for the console; raised for one user it is
printed and the next user is processed. Any other error is a failure of the
metadata store or the disk and ends the run. Failures of a single file are
neither: they are counted, listed in the failed table and the run goes on.

# Scanning

Create walks the files folder of each user through GalleryScanner, which
runs the storage scanner of every mount and hands each cached entry to a
NodeVisitor. Thumbnails written during the walk are reported by the
scanner too, which is why the visitor checks the scope of every path. The
changes collected by the walk are propagated to the parent folders once per
user, after all of the user's mounts were scanned.

# Cancellation

A CancelFlag is polled before each visited entry and each matched file.
Once it is set nothing new is started, the current walk stops at the next
entry and the summary shows what was done.
*/
package thumbnails
