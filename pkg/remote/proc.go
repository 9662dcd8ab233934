package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// killGrace is how long Close waits for the child to exit on its own
// after stdin closes.
const killGrace = 5 * time.Second

// ProcInvoker drives a routing service child process over its stdio using
// newline-delimited JSON-RPC. Safe for concurrent use.
type ProcInvoker struct {
	cmd  *exec.Cmd
	conn *rpcConn
}

// StartProc launches the command and attaches to its stdio. The child's
// stderr passes through for diagnostics.
func StartProc(command string, args ...string) (*ProcInvoker, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout: %w", err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	logger := log.WithFields(log.Fields{"command": command, "pid": cmd.Process.Pid})
	logger.Debug("remote process started")
	return &ProcInvoker{
		cmd:  cmd,
		conn: newRPCConn(stdin, stdout, logger),
	}, nil
}

// Invoke issues one operation call and waits for the matching response or
// ctx cancellation.
func (p *ProcInvoker) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	return p.conn.invoke(ctx, op, args)
}

// Close signals the child by closing stdin, waits briefly for a clean
// exit, then kills it.
func (p *ProcInvoker) Close() error {
	closeErr := p.conn.close()

	select {
	case <-p.conn.done:
	case <-time.After(killGrace):
		_ = p.cmd.Process.Kill()
		<-p.conn.done
	}

	waitErr := p.cmd.Wait()
	if closeErr != nil {
		return closeErr
	}
	if waitErr != nil {
		return fmt.Errorf("remote process exit: %w", waitErr)
	}
	return nil
}
