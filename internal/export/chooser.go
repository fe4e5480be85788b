package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/muesli/cancelreader"

	"github.com/starford/quicknote/internal/apperr"
)

// PromptChooser asks for a destination on a line-oriented terminal. An empty
// answer accepts the default (the suggested name inside Dir); "-" cancels.
//
// When In is a terminal or pipe, a cancelled context also abandons the
// pending read. Other readers stay blocked until they yield a line or are
// closed.
type PromptChooser struct {
	In  io.Reader
	Out io.Writer
	Dir string
}

type promptAnswer struct {
	line string
	err  error
}

// Choose implements Chooser.
func (p PromptChooser) Choose(ctx context.Context, suggestedName string) (string, error) {
	def := filepath.Join(p.Dir, suggestedName)
	fmt.Fprintf(p.Out, "Export to [%s] (\"-\" to cancel): ", def)

	in := p.In
	cr, err := cancelreader.NewReader(p.In)
	if err != nil {
		cr = nil
	} else {
		defer cr.Close()
		in = cr
	}

	answers := make(chan promptAnswer, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		answers <- promptAnswer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		if cr != nil && cr.Cancel() {
			<-answers
		}
		return "", apperr.ErrCanceled
	case a := <-answers:
		if a.err != nil && a.err != io.EOF {
			return "", a.err
		}
		answer := strings.TrimSpace(a.line)
		switch answer {
		case "-":
			return "", apperr.ErrCanceled
		case "":
			return def, nil
		}
		return answer, nil
	}
}
