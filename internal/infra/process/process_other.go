//go:build !unix

package process

import "os/exec"

func setupProcessHandling(cmd *exec.Cmd) func() {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
	return func() {}
}
