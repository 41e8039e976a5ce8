package ports

import "context"

// CommandRunner starts external processes.
type CommandRunner interface {
	// Start launches argv and returns once the process is running. A
	// process that cannot be launched is reported as process.ErrLaunchFailed.
	Start(ctx context.Context, argv []string) (CommandHandle, error)
}

// CommandHandle is a running process. Lines must be drained before Wait
// returns: the channel carries combined stdout and stderr in emission order
// and is closed once the process closes its output.
type CommandHandle interface {
	Lines() <-chan string
	// Wait reaps the process. A non-zero exit is reported through the exit
	// code, not the error.
	Wait() (exitCode int, err error)
}
