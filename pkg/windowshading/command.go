package windowshading

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

// CommandProblem evaluates objectives by running an external simulator once per
// design. The design is written to stdin as a bit string followed by a newline;
// the command must print "<energy> <cost>" on the last line of stdout.
// Constraints, name and dimension come from the embedded problem.
type CommandProblem struct {
	framework.Problem

	Path string
	Args []string
}

var _ framework.Problem = &CommandProblem{}

// NewCommandProblem wraps base with the simulator command argv.
func NewCommandProblem(base framework.Problem, argv []string) (*CommandProblem, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("simulator command is empty")
	}
	return &CommandProblem{
		Problem: base,
		Path:    argv[0],
		Args:    argv[1:],
	}, nil
}

// Objectives runs the simulator. The run is bound to ctx.
func (p *CommandProblem) Objectives(ctx context.Context, alleles []bool) (framework.ObjectiveSpacePoint, error) {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = strings.NewReader(framework.AllelesKey(alleles) + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running simulator %s: %w (stderr: %q)", p.Path, err, strings.TrimSpace(stderr.String()))
	}
	return parseObjectives(stdout.String())
}

func parseObjectives(output string) (framework.ObjectiveSpacePoint, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) != 2 {
		return nil, fmt.Errorf("simulator output %q: expected \"<energy> <cost>\"", lines[len(lines)-1])
	}
	point := make(framework.ObjectiveSpacePoint, 2)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("simulator output %q: %w", f, err)
		}
		point[i] = v
	}
	return point, nil
}
