package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

type lineResult struct {
	text string
	err  error
}

// LineConsole reads operator input line by line from an io.Reader and writes
// prompts and messages to an io.Writer.
//
// Lines are scanned on a separate goroutine so that ReadLine can give up
// when its context is done. That goroutine lives until the reader is closed
// or exhausted.
type LineConsole struct {
	in    *bufio.Scanner
	out   io.Writer
	lines chan lineResult
	once  sync.Once
}

func NewLineConsole(in io.Reader, out io.Writer) *LineConsole {
	return &LineConsole{
		in:    bufio.NewScanner(in),
		out:   out,
		lines: make(chan lineResult),
	}
}

func (c *LineConsole) scan() {
	defer close(c.lines)
	for c.in.Scan() {
		c.lines <- lineResult{text: c.in.Text()}
	}
	if err := c.in.Err(); err != nil {
		c.lines <- lineResult{err: err}
	}
}

// ReadLine prints prompt and waits for the next line. It returns io.EOF once
// input is exhausted and ctx.Err() when ctx is done first.
func (c *LineConsole) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.once.Do(func() { go c.scan() })

	fmt.Fprint(c.out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return r.text, r.err
	}
}

func (c *LineConsole) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
