package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/melih/dirg/internal/core/domain"
)

// PromptSelector asks on the terminal which container's logs to show.
type PromptSelector struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptSelector(in io.Reader, out io.Writer) *PromptSelector {
	return &PromptSelector{in: bufio.NewReader(in), out: out}
}

// SelectContainer lists the containers numbered from 1 and reads the choice.
func (p *PromptSelector) SelectContainer(svc domain.ServiceSpec) (int, error) {
	fmt.Fprintln(p.out, "Choose container:")
	for i, c := range svc.Containers {
		fmt.Fprintf(p.out, "%d) %s\n", i+1, c.Name)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, fmt.Errorf("failed to read container choice: %w", err)
	}
	return parseChoice(strings.TrimSpace(line), svc)
}

// IndexSelector answers with a choice given up front, numbered from 1.
type IndexSelector struct {
	Choice int
}

func (s IndexSelector) SelectContainer(svc domain.ServiceSpec) (int, error) {
	return parseChoice(strconv.Itoa(s.Choice), svc)
}

func parseChoice(choice string, svc domain.ServiceSpec) (int, error) {
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(svc.Containers) {
		return 0, &domain.ValidationError{Msg: fmt.Sprintf("invalid container choice %q for service %s", choice, svc.Name)}
	}
	return n - 1, nil
}
