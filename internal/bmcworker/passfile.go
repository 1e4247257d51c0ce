// SPDX-License-Identifier: BSD-3-Clause

package bmcworker

import (
	"fmt"
	"os"
)

// writePasswordFile creates a mode-0600 temp file holding password, the
// per-thread password temp-file lifecycle of §4.5. The caller must remove
// it on every exit path, including IDLE-stage garbage collection.
func writePasswordFile(dir, prefix, password string) (string, error) {
	f, err := os.CreateTemp(dir, fmt.Sprintf(".%s-pass-*", prefix))
	if err != nil {
		return "", fmt.Errorf("bmcworker: creating password temp file: %w", err)
	}
	name := f.Name()

	if err := os.Chmod(name, 0o600); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("bmcworker: chmod password temp file: %w", err)
	}
	if _, err := f.WriteString(password); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("bmcworker: writing password temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("bmcworker: closing password temp file: %w", err)
	}

	return name, nil
}

func removeIfSet(path string) {
	if path != "" {
		os.Remove(path)
	}
}
