package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"crowdtags/internal/canonical"
	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/model"
)

func newKeyCommand(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "key [batch-json]",
		Short: "Print the canonical key of every action in a JSON batch",
		Long: `Print one canonical key per action of the JSON action batch given as the
argument, or read from stdin when no argument is given.

With --check the input is read as canonical keys, one per line, and every
line that is not in canonical form is reported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if check {
				return a.runCheck(cmd.OutOrStdout(), input)
			}
			return a.runKey(cmd.OutOrStdout(), input)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify that each input line is already a canonical key")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", apperrors.Decode("cannot read stdin", err)
	}
	return string(data), nil
}

func (a *app) runKey(w io.Writer, input string) error {
	batch, err := model.ParseBatch([]byte(input))
	if err != nil {
		return err
	}
	keys := canonical.Canonicalize(batch)
	for _, key := range keys {
		if _, err := fmt.Fprintln(w, key); err != nil {
			return apperrors.Internal("write key", err)
		}
	}
	a.log.Debug("Batch canonicalized", "actions", len(keys))
	return nil
}

func (a *app) runCheck(w io.Writer, input string) error {
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var bad []int
	line, checked := 0, 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		checked++
		ok, err := canonical.Verify(text)
		if err != nil {
			return apperrors.AsAppError(err).WithDetails(map[string]any{"line": line})
		}
		if !ok {
			bad = append(bad, line)
			if _, err := fmt.Fprintf(w, "line %d: not canonical, expected %s\n", line, mustKey(text)); err != nil {
				return apperrors.Internal("write check result", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Decode("cannot read keys", err)
	}
	if len(bad) > 0 {
		return apperrors.InvalidInput(fmt.Sprintf("%d of %d keys are not canonical", len(bad), checked)).
			WithDetails(map[string]any{"lines": bad})
	}
	a.log.Debug("Keys verified", "keys", checked)
	return nil
}

// mustKey recomputes the key of text, which Verify has already decoded.
func mustKey(text string) string {
	action, err := canonical.Decode(text)
	if err != nil {
		return ""
	}
	return canonical.Key(action)
}
