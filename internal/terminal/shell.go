// Package terminal runs the interactive, line-oriented checkout loop.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// Register is the checkout the shell drives. *checkout.Checkout implements it.
type Register interface {
	Scan(code string) error
	CalculateTotal() (decimal.Decimal, error)
	Lines() ([]pricing.Line, error)
	Clear()
	Empty() bool
	SessionID() uuid.UUID
}

// PriceList lists the configured pricing rules. *pricing.Factory implements it.
type PriceList interface {
	Codes() []string
	GetRule(code string) (pricing.Rule, bool, error)
}

// Shell reads item codes and session keywords line by line.
type Shell struct {
	Register    Register
	Prices      PriceList
	Currency    string
	ShowReceipt bool
	Logger      zerolog.Logger
	Metrics     *obs.CheckoutMetrics
}

type command int

const (
	cmdScan command = iota
	cmdFinish
	cmdQuit
	cmdPrices
)

func parse(line string) (command, string) {
	input := strings.ToUpper(strings.TrimSpace(line))
	switch input {
	case "DONE", "FINISH":
		return cmdFinish, input
	case "QUIT", "EXIT":
		return cmdQuit, input
	case "PRICES":
		return cmdPrices, input
	default:
		return cmdScan, input
	}
}

// Run processes in until EOF, a quit keyword or ctx cancellation. Cancellation
// is honoured while waiting for input.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p := &printer{w: out}
	s.banner(p)
	if p.err != nil {
		return p.err
	}

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return p.err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			cmd, input := parse(line)
			switch cmd {
			case cmdQuit:
				p.println("Thank you for shopping with us. Goodbye!")
				return p.err
			case cmdFinish:
				s.finish(p)
			case cmdPrices:
				s.priceList(p)
			default:
				s.scan(p, input)
			}
			if p.err != nil {
				return p.err
			}
		}
	}
}

// readLines feeds lines from in until EOF or until done is closed. The scanner
// error, if any, is sent on the second channel before the lines channel closes.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (s *Shell) banner(p *printer) {
	p.println("Welcome to the checkout.")
	codes := ""
	if s.Prices != nil {
		codes = strings.Join(s.Prices.Codes(), ", ")
	}
	p.printf("Enter items (%s) one by one. Type 'done' to finish, 'prices' for the price list or 'quit' to exit:\n", codes)
}

func (s *Shell) scan(p *printer, code string) {
	if err := s.Register.Scan(code); err != nil {
		p.printf("%v. Please try again.\n", err)
		return
	}
	total, err := s.Register.CalculateTotal()
	if err != nil {
		s.totalFailed(p, err)
		return
	}
	p.printf("Running total: %s\n", s.format(total))
}

func (s *Shell) finish(p *printer) {
	session := s.Register.SessionID()
	empty := s.Register.Empty()
	if s.ShowReceipt && !empty {
		lines, err := s.Register.Lines()
		if err != nil {
			s.totalFailed(p, err)
			return
		}
		for _, line := range lines {
			p.printf("  %-6s x%-4d %s\n", line.Code, line.Qty, s.format(line.Amount))
		}
	}
	total, err := s.Register.CalculateTotal()
	if err != nil {
		s.totalFailed(p, err)
		return
	}
	p.printf("Final total: %s\n", s.format(total))
	if !empty {
		s.Metrics.SessionCompleted(total)
	}
	s.Logger.Info().
		Str("session_id", session.String()).
		Str("total", total.StringFixed(pricing.Scale)).
		Msg("checkout finished")

	s.Register.Clear()
	p.println("Starting a new checkout. Enter items or 'quit' to exit:")
}

func (s *Shell) priceList(p *printer) {
	if s.Prices == nil {
		return
	}
	for _, code := range s.Prices.Codes() {
		rule, ok, err := s.Prices.GetRule(code)
		if err != nil || !ok {
			continue
		}
		if desc, ok := rule.(fmt.Stringer); ok {
			p.printf("  %s: %s\n", code, desc.String())
		} else {
			p.printf("  %s\n", code)
		}
	}
}

func (s *Shell) totalFailed(p *printer, err error) {
	s.Logger.Error().Err(err).Str("session_id", s.Register.SessionID().String()).Msg("calculate total")
	p.printf("Unable to calculate total: %v\n", err)
}

func (s *Shell) format(amount decimal.Decimal) string {
	return s.Currency + amount.StringFixed(pricing.Scale)
}

// printer keeps the first write error so the loop can stop on a broken output.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(line string) {
	p.printf("%s\n", line)
}
