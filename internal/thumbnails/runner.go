package thumbnails

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/logging"
)

const processOwnerHint = "Make sure you're running the command only as the user owning the data directory"

// Env holds the collaborators of a run.
type Env struct {
	Out        io.Writer
	Users      UserDirectory
	FS         Filesystem
	Previews   PreviewProvider
	Encryption EncryptionStatus
	Tx         Transactor
	Changes    ChangeSet
	Locks      locking.Provider
	Confirm    Confirmer
	Cancel     *CancelFlag
}

// Params are the targeting arguments shared by the commands.
type Params struct {
	// Path limits the run to a folder, e.g. /alice/files/Holidays. It wins
	// over Users and All.
	Path  string
	Users []string
	All   bool
}

// Targets is the outcome of ParseParameters.
type Targets struct {
	Path     string
	Users    []string
	AllUsers bool
}

// MountOperation is run by PerformOperation once per eligible mount. path is
// the folder the operation was asked for, not relative to the mount.
type MountOperation func(ctx context.Context, storage filesystem.Storage, mount *filesystem.Mount, path, user string) (int64, error)

// Runner carries what both commands share: targeting, mount selection,
// console output, cancellation and the run statistics.
type Runner struct {
	env   Env
	quiet bool
	stats *RunStatistics
}

// NewRunner returns a runner with fresh statistics.
func NewRunner(env Env, quiet bool) *Runner {
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.Locks == nil {
		env.Locks = locking.NoopProvider{}
	}
	return &Runner{env: env, quiet: quiet, stats: newRunStatistics()}
}

// Stats returns the statistics of the run.
func (r *Runner) Stats() *RunStatistics { return r.stats }

// Printf writes a line of progress output, unless the run is quiet.
func (r *Runner) Printf(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.env.Out, format+"\n", args...)
}

// Errorf writes an error line. Error lines are shown to quiet runs too.
func (r *Runner) Errorf(format string, args ...any) {
	fmt.Fprintf(r.env.Out, format+"\n", args...)
}

// Interrupted reports whether the run was asked to stop.
func (r *Runner) Interrupted() bool {
	return r.env.Cancel.IsSet()
}

// Confirm asks question and fails with an input error unless the answer is
// yes. Without a Confirmer every question is declined.
func (r *Runner) Confirm(question string) error {
	if r.env.Confirm == nil {
		return inputError("Operation aborted")
	}
	ok, err := r.env.Confirm.Confirm(question)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return inputError("Operation aborted")
	}
	return nil
}

// TrackFailed records a failed item and prints why it failed.
func (r *Runner) TrackFailed(path, message string) {
	r.stats.trackFailure(path)
	logging.Debug("Failed operation on %s: %s", path, message)
	r.Printf("%s", message)
}

// ParseParameters resolves the users and the optional path a run targets.
// userMsg and pathMsg are the command specific input error messages.
func (r *Runner) ParseParameters(p Params, userMsg, pathMsg string) (Targets, error) {
	if p.Path != "" {
		path := "/" + strings.Trim(p.Path, "/")
		parts := strings.SplitN(path, "/", 4)
		if len(parts) < 3 || parts[1] == "" || parts[2] != "files" {
			return Targets{}, inputError("%s", pathMsg)
		}
		return Targets{Path: path, Users: []string{parts[1]}}, nil
	}

	if p.All {
		users, err := r.env.Users.List()
		if err != nil {
			return Targets{}, fmt.Errorf("failed to list users: %w", err)
		}
		if len(users) == 0 {
			return Targets{}, inputError("%s", userMsg)
		}
		return Targets{Users: users, AllUsers: true}, nil
	}

	if len(p.Users) == 0 {
		return Targets{}, inputError("%s", userMsg)
	}
	return Targets{Users: slices.Clone(p.Users)}, nil
}

// PerformOperation runs op on every mount of user at or below dir, the mount
// containing dir first. Mounts without a storage or with previews disabled
// are skipped. It returns the sum of the sizes op returned.
func (r *Runner) PerformOperation(ctx context.Context, op MountOperation, user, dir string) (int64, error) {
	if !filesystem.IsValidPath(dir) {
		return 0, inputError("Invalid path to scan")
	}

	mounts, err := r.mounts(user, dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, m := range mounts {
		storage := m.Storage()
		if storage == nil || !m.Option("previews", true) {
			logging.Debug("Skipping mount %s", m.MountPoint())
			continue
		}
		// A home storage we cannot write to means we run as the wrong user
		if storage.IsHome() && (!storage.IsCreatable("") || !storage.IsCreatable("files")) {
			return total, forbiddenError("Home storage for user %s not writable\n%s", user, processOwnerHint)
		}

		size, err := op(ctx, storage, m, dir, user)
		if err != nil {
			return total, err
		}
		total += size
	}
	return total, nil
}

func (r *Runner) mounts(user, dir string) ([]*filesystem.Mount, error) {
	if err := r.env.FS.Setup(user); err != nil {
		return nil, notFoundError("Cannot set up the storages of %s: %v", user, err)
	}
	if !r.env.FS.NodeExists(dir) {
		return nil, inputError("The path provided does not exist")
	}

	mounts := r.env.FS.FindIn(dir)
	if m := r.env.FS.Find(dir); m != nil {
		mounts = append(mounts, m)
	}
	slices.Reverse(mounts)
	return mounts, nil
}

// showSummary renders the counters table followed by the last scanned file.
// row defaults to the create counters. Quiet runs get the summary too.
func (r *Runner) showSummary(headers, row []string) {
	s := r.stats
	if row == nil {
		row = []string{
			fmt.Sprint(s.Folders),
			fmt.Sprint(s.Files),
			fmt.Sprint(s.Images),
			fmt.Sprint(s.Operations),
			fmt.Sprint(s.Failed),
			FormatExecTime(s.Elapsed),
			FormatSize(s.Size),
		}
	}
	fmt.Fprintln(r.env.Out, renderTable(headers, [][]string{row}))
	fmt.Fprintf(r.env.Out, "Last scanned file %s\n", s.LastFile)
}

// showFailed renders the failed paths, if any.
func (r *Runner) showFailed(header string) {
	if len(r.stats.FailedPaths) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.stats.FailedPaths))
	for _, p := range r.stats.FailedPaths {
		rows = append(rows, []string{p})
	}
	fmt.Fprintln(r.env.Out, renderTable([]string{header}, rows))
}

// workflow is what distinguishes the commands. execute drives it.
type workflow interface {
	name() string
	// inputMessages returns the errors shown when no user, or a malformed
	// path, was given.
	inputMessages() (userMsg, pathMsg string)
	// guard runs before the parameters are parsed.
	guard() error
	// prepare runs once the targets are known, before anything is changed.
	prepare(r *Runner, t Targets) error
	processUser(ctx context.Context, r *Runner, user string, t Targets) error
	present(r *Runner)
}

func execute(ctx context.Context, env Env, p Params, quiet bool, w workflow) (*RunStatistics, error) {
	r := NewRunner(env, quiet)

	if err := w.guard(); err != nil {
		r.Errorf("%s", err)
		return r.stats, err
	}

	userMsg, pathMsg := w.inputMessages()
	targets, err := r.ParseParameters(p, userMsg, pathMsg)
	if err == nil {
		err = w.prepare(r, targets)
	}
	if err != nil {
		if IsCommandError(err) {
			r.Errorf("%s", err)
		}
		return r.stats, err
	}

	logging.Info("Running %s for %d user(s)", w.name(), len(targets.Users))
	for _, user := range targets.Users {
		if r.Interrupted() {
			logging.Info("%s interrupted before user %s", w.name(), user)
			break
		}
		if !env.Users.UserExists(user) {
			r.Errorf("Unknown user %s", user)
			continue
		}
		if err := w.processUser(ctx, r, user, targets); err != nil {
			if !IsCommandError(err) {
				return r.stats, err
			}
			r.Errorf("%s", err)
		}
	}

	r.stats.finish()
	w.present(r)
	logging.Info("%s finished in %s: %d file(s), %d image(s), %d operation(s), %d failure(s)",
		w.name(), r.stats.Elapsed, r.stats.Files, r.stats.Images, r.stats.Operations, r.stats.Failed)
	return r.stats, nil
}
