package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Overridable for testing.
var (
	CommandContext = exec.CommandContext
	LookPath       = exec.LookPath
)

// ResolveSecretReference resolves a 1Password secret reference such as
// op://vault/item/field through the op CLI. Plain values pass through
// untouched. The second return value reports whether the input was a
// reference.
func ResolveSecretReference(ctx context.Context, value string) (string, bool, error) {
	if !strings.HasPrefix(value, "op://") {
		return value, false, nil
	}

	if _, err := LookPath("op"); err != nil {
		return "", true, fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	cmd := CommandContext(ctx, "op", "read", value)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", true, fmt.Errorf("failed to read secret from 1Password: %s", string(exitErr.Stderr))
		}
		return "", true, fmt.Errorf("failed to read secret from 1Password: %w", err)
	}

	return strings.TrimSpace(string(output)), true, nil
}
