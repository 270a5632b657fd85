package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/testutil"
)

const accountantRules = `config:
  result_shape: value
rules:
  - name: is-accountant
    when: fact.needsJob == true
    then: setResult('accountant')
  - name: needs-job
    when: fact.year == 'three'
    then: set('needsJob', true)
  - name: on-campus
    when: fact.year == 'three'
    then: set('lives', 'on campus')
`

const ledgerRules = `rules:
  - name: deposit
    when: fact.kind == 'deposit' && get('booked') == nil
    then:
      - setResult(result + fact.amount)
      - set('booked', true)
  - name: withdraw
    when: fact.kind == 'withdraw' && get('booked') == nil
    then:
      - setResult(result - fact.amount)
      - set('booked', true)
config:
  result_shape: value
`

const ledgerFacts = `- {kind: deposit, amount: 100}
- {kind: withdraw, amount: 30}
- {kind: deposit, amount: 5}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// runCommand returns a run command with sequential run IDs.
func runCommand(format string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		IDs:         testutil.NewSequenceGenerator("run"),
	})
}

// chainCommand returns a chain command with sequential run IDs.
func chainCommand(format string) *cobra.Command {
	return newChainCommand(&ChainOptions{
		RootOptions: &RootOptions{Format: format},
		IDs:         testutil.NewSequenceGenerator("chain"),
	})
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader
// goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
