// Package console implements the interactive text menu of the tracker.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	service "github.com/okian/ecopoints/internal/app"
	"github.com/okian/ecopoints/internal/domain/model"
	"github.com/okian/ecopoints/internal/domain/report"
	"github.com/okian/ecopoints/internal/domain/types"
	"github.com/okian/ecopoints/pkg/logger"
)

// Tracker is the session the console drives.
type Tracker interface {
	Register(ctx context.Context, id, name, address string) (*model.Household, error)
	LogEvent(ctx context.Context, householdID, material string, weight float64) (model.RecyclingEvent, error)
	Household(id string) (*model.Household, error)
	Households() []*model.Household
	Materials() []string
	Report() report.Summary
	Leaderboard() []types.Entry
	Save(ctx context.Context) error
}

const menu = `
=== Eco-Points Recycling Tracker ===
1. Register Household
2. Log Recycling Event
3. Display Households
4. Display Household Recycling Events
5. Generate Reports
6. Save and Exit
`

const separator = "---------------------------"

// Console reads commands from in and writes prompts and results to out.
type Console struct {
	tracker  Tracker
	out      io.Writer
	lines    <-chan string
	readErr  error // set before lines is closed
	stop     chan struct{}
	validate *validator.Validate
	logger   logger.Logger
}

// Option applies a configuration option to the Console.
type Option func(*Console)

// WithLogger sets the console's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Console) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a console over tracker. Input lines are read from in on a
// separate goroutine so Run can honour context cancellation while waiting.
func New(tracker Tracker, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		tracker:  tracker,
		out:      out,
		validate: newValidator(),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	lines := make(chan string)
	c.stop = make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-c.stop:
				return
			}
		}
		c.readErr = scanner.Err()
	}()
	c.lines = lines

	return c
}

// errInputClosed means the input reached EOF.
var errInputClosed = errors.New("input closed")

// Run shows the menu until the user saves and exits or the input ends, in
// which case the registry is saved before returning. Cancelling ctx or an
// input read failure returns the error without saving. Run may be called once.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.stop)
	for {
		c.print(menu)
		choice, err := c.prompt(ctx, "Choose an option: ")
		if errors.Is(err, errInputClosed) {
			c.println("\nInput closed; saving.")
			return c.save(ctx)
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.registerHousehold(ctx)
		case "2":
			err = c.logRecyclingEvent(ctx)
		case "3":
			c.displayHouseholds()
		case "4":
			err = c.displayHouseholdEvents(ctx)
		case "5":
			c.generateReports()
		case "6":
			if err := c.save(ctx); err != nil {
				c.println("Data was not saved. Choose 6 to try again.")
				continue
			}
			c.println("Data saved. Goodbye!")
			return nil
		default:
			c.println("Invalid choice. Please try again.")
		}

		if errors.Is(err, errInputClosed) {
			c.println("\nInput closed; saving.")
			return c.save(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// save returns an error only when the snapshot itself was not written.
// Failures of the secondary outputs are shown as warnings.
func (c *Console) save(ctx context.Context) error {
	err := c.tracker.Save(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrSnapshotNotSaved):
		c.printf("Error saving data: %v\n", err)
		return err
	default:
		c.logger.Warn(ctx, "secondary save output failed", logger.Error(err))
		c.printf("Warning: %v\n", err)
		return nil
	}
}

func (c *Console) registerHousehold(ctx context.Context) error {
	var form registrationForm
	var err error
	if form.ID, err = c.prompt(ctx, "Enter Household ID: "); err != nil {
		return err
	}
	if form.Name, err = c.prompt(ctx, "Enter Household Name: "); err != nil {
		return err
	}
	if form.Address, err = c.prompt(ctx, "Enter Household Address: "); err != nil {
		return err
	}

	if err := c.validate.Struct(form); err != nil {
		c.printf("Invalid input: %s\n", describe(err))
		return nil
	}

	h, err := c.tracker.Register(ctx, form.ID, form.Name, form.Address)
	switch {
	case errors.Is(err, model.ErrDuplicateID):
		c.println("Household with this ID already exists.")
	case err != nil:
		c.printf("Could not register household: %v\n", err)
	default:
		c.printf("Household registered successfully on %s\n", model.FormatDate(h.JoinDate()))
	}
	return nil
}

func (c *Console) logRecyclingEvent(ctx context.Context) error {
	id, err := c.prompt(ctx, "Enter Household ID: ")
	if err != nil {
		return err
	}
	if _, err := c.tracker.Household(id); err != nil {
		c.println("Household not found.")
		return nil
	}

	material, err := c.prompt(ctx, fmt.Sprintf("Enter Material Type (%s): ", strings.Join(c.tracker.Materials(), " / ")))
	if err != nil {
		return err
	}
	if err := c.validate.Var(material, "required"); err != nil {
		c.println("Invalid input: material is required")
		return nil
	}

	var weight float64
	for {
		raw, err := c.prompt(ctx, "Enter Weight in Kilograms: ")
		if err != nil {
			return err
		}
		if weight, err = c.parseWeight(raw); err == nil {
			break
		}
		c.logger.Debug(ctx, "rejected weight input", logger.String("input", raw))
		c.println("Invalid weight. Must be a positive number.")
	}

	e, err := c.tracker.LogEvent(ctx, id, material, weight)
	if err != nil {
		c.printf("Could not log event: %v\n", err)
		return nil
	}
	c.printf("Recycling event logged successfully on %s. Eco-points earned: %.2f\n",
		model.FormatDate(e.Date()), e.EcoPoints())
	return nil
}

func (c *Console) displayHouseholds() {
	households := c.tracker.Households()
	if len(households) == 0 {
		c.println("No households registered yet.")
		return
	}

	c.println("\n=== Registered Households ===")
	for _, h := range households {
		c.println(separator)
		c.printf("ID: %s\n", h.ID())
		c.printf("Name: %s\n", h.Name())
		c.printf("Address: %s\n", h.Address())
		c.printf("Join Date: %s\n", model.FormatDate(h.JoinDate()))
		c.println(separator)
	}
}

func (c *Console) displayHouseholdEvents(ctx context.Context) error {
	id, err := c.prompt(ctx, "Enter Household ID: ")
	if err != nil {
		return err
	}
	h, err := c.tracker.Household(id)
	if err != nil {
		c.println("Household not found.")
		return nil
	}

	c.printf("\nRecycling Events for %s:\n", h.Name())
	events := h.Events()
	if len(events) == 0 {
		c.println("No recycling events logged for this household.")
		return nil
	}
	for _, e := range events {
		c.println(e.String())
	}
	c.printf("Total Weight: %.2f kg\n", h.TotalWeight())
	c.printf("Total Points: %.2f pts\n", h.TotalPoints())
	return nil
}

func (c *Console) generateReports() {
	sum := c.tracker.Report()
	if sum.Top == nil {
		c.println("No households registered.")
		return
	}

	c.println("\nHousehold with Highest Points:")
	c.printf("ID: %s, Name: %s, Points: %.2f\n", sum.Top.ID(), sum.Top.Name(), sum.Top.TotalPoints())
	c.printf("Total Community Recycling Weight: %.2f kg\n", sum.TotalWeight)
	c.printf("Households: %d, Events: %d, Community Points: %.2f\n", sum.Households, sum.Events, sum.TotalPoints)

	c.println("\nLeaderboard:")
	for _, entry := range c.tracker.Leaderboard() {
		c.printf("%2d. %-20s %10.2f pts %10.2f kg\n", entry.Rank, entry.Name, entry.Points, entry.WeightKg)
	}
}

// parseWeight accepts finite numbers greater than zero.
func (c *Console) parseWeight(raw string) (float64, error) {
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(w, 0) {
		return 0, model.ErrInvalidWeight
	}
	if err := c.validate.Var(w, "gt=0"); err != nil {
		return 0, err
	}
	return w, nil
}

// prompt writes label and returns the next trimmed input line.
func (c *Console) prompt(ctx context.Context, label string) (string, error) {
	c.print(label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				c.printf("\nError reading input: %v\n", c.readErr)
				return "", fmt.Errorf("read input: %w", c.readErr)
			}
			return "", errInputClosed
		}
		return strings.TrimSpace(line), nil
	}
}

func (c *Console) print(s string) { _, _ = io.WriteString(c.out, s) }

func (c *Console) println(s string) { _, _ = io.WriteString(c.out, s+"\n") }

func (c *Console) printf(format string, a ...any) { _, _ = fmt.Fprintf(c.out, format, a...) }
