package presentation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"textmacro-go/application/monitor"
	"textmacro-go/core/command"
	"textmacro-go/domain/region"
	"textmacro-go/domain/regionset"
)

// Controller is the application surface the shell drives.
type Controller interface {
	Dispatch(ctx context.Context, cmd command.Command) error
	Probe(ctx context.Context, regionName string) (monitor.ProbeResult, error)
	Status() monitor.Status
	Store() *regionset.Store
}

// Shell reads commands line by line and dispatches them.
type Shell struct {
	ctrl   Controller
	in     io.Reader
	out    io.Writer
	prompt string
}

// NewShell creates a shell reading from in and writing to out.
func NewShell(ctrl Controller, in io.Reader, out io.Writer) *Shell {
	return &Shell{ctrl: ctrl, in: in, out: out, prompt: "> "}
}

const shellHelp = `Commands:
  start [set]        start monitoring (optionally loading a set first)
  stop               stop monitoring
  stop!              emergency stop
  status             show the monitor state
  sets               list region sets
  load <set>         activate a region set
  save <set>         save the active regions as a set
  delete <set>       delete a region set
  regions            list the regions of the active set
  add <region> --rect x,y,w,h [--target text] [--compare x,y,w,h]
      [--compare-only] [--action kind:args]... [--disabled]
                     add a region to the active set
  update <region> [flags of add] [--rename name]
                     change the given fields of a region
  remove <region>    remove a region
  clear              remove every region of the active set
  enable <region>    enable a region
  disable <region>   disable a region
  test <region>      recognize a region once without running actions
  help               show this help
  quit               stop monitoring and exit`

// Run processes input until quit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	fmt.Fprintln(s.out, `Type "help" for commands.`)
	for {
		fmt.Fprint(s.out, s.prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if s.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "":
		return false
	case "quit", "exit", "q":
		if s.ctrl.Status().State.IsActive() {
			err = s.ctrl.Dispatch(ctx, &command.StopMonitor{})
		}
		s.report(err)
		return true
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "start":
		err = s.ctrl.Dispatch(ctx, &command.StartMonitor{SetName: arg})
	case "stop":
		err = s.ctrl.Dispatch(ctx, &command.StopMonitor{})
	case "stop!":
		err = s.ctrl.Dispatch(ctx, &command.EmergencyStop{})
	case "status":
		s.printStatus()
	case "sets":
		s.printSets()
	case "regions":
		s.printRegions()
	case "load":
		err = s.requireArg(name, arg, func() error { return s.ctrl.Dispatch(ctx, &command.LoadSet{Name: arg}) })
	case "save":
		err = s.requireArg(name, arg, func() error { return s.ctrl.Dispatch(ctx, &command.SaveSet{Name: arg}) })
	case "delete":
		err = s.requireArg(name, arg, func() error { return s.ctrl.Dispatch(ctx, &command.DeleteSet{Name: arg}) })
	case "add", "update":
		err = s.requireArg(name, arg, func() error { return s.editRegion(ctx, strings.ToLower(name), arg) })
	case "remove":
		err = s.requireArg(name, arg, func() error { return s.ctrl.Dispatch(ctx, command.NewRemoveRegion(arg)) })
	case "clear":
		err = s.ctrl.Dispatch(ctx, &command.ClearRegions{})
	case "enable", "disable":
		enabled := strings.EqualFold(name, "enable")
		err = s.requireArg(name, arg, func() error {
			return s.ctrl.Dispatch(ctx, command.NewSetRegionEnabled(arg, enabled))
		})
	case "test":
		err = s.requireArg(name, arg, func() error { return s.test(ctx, arg) })
	default:
		err = fmt.Errorf("unknown command %q, type help", name)
	}
	s.report(err)
	return false
}

var errMissingArg = errors.New("missing argument")

func (s *Shell) requireArg(name, arg string, fn func() error) error {
	if arg == "" {
		return fmt.Errorf("%w: usage: %s <name>", errMissingArg, name)
	}
	return fn()
}

// editRegion parses "<region> [flags]" and dispatches AddRegion or
// UpdateRegion for the active set.
func (s *Shell) editRegion(ctx context.Context, verb, arg string) error {
	words, err := SplitWords(arg)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("%w: usage: %s <region> [flags]", errMissingArg, verb)
	}
	regionName, args := words[0], words[1:]

	var flags RegionFlags
	fs := pflag.NewFlagSet(verb, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags.Register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if verb == "add" {
		r, err := flags.NewRegion(fs, regionName)
		if err != nil {
			return err
		}
		if err := s.ctrl.Dispatch(ctx, &command.AddRegion{Region: r}); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "added %s\n", r.Name)
		return nil
	}

	r, ok := findRegion(s.ctrl.Store().Active(), regionName)
	if !ok {
		return fmt.Errorf("%w: %s", regionset.ErrRegionNotFound, regionName)
	}
	if err := flags.Apply(fs, &r); err != nil {
		return err
	}
	if err := s.ctrl.Dispatch(ctx, command.NewUpdateRegion(regionName, r)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "updated %s\n", r.Name)
	return nil
}

func findRegion(regions []region.Region, name string) (region.Region, bool) {
	for _, r := range regions {
		if r.Name == name {
			return r, true
		}
	}
	return region.Region{}, false
}

func (s *Shell) report(err error) {
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *Shell) test(ctx context.Context, regionName string) error {
	res, err := s.ctrl.Probe(ctx, regionName)
	if err != nil {
		return err
	}
	PrintProbe(s.out, res)
	return nil
}

// PrintProbe writes the outcome of a region probe to out.
func PrintProbe(out io.Writer, res monitor.ProbeResult) {
	fmt.Fprintf(out, "text:       %q\n", res.Text)
	if res.ComparisonText != "" {
		fmt.Fprintf(out, "comparison: %q\n", res.ComparisonText)
	}
	if res.Decision.Triggered {
		fmt.Fprintf(out, "result:     would trigger (%s)\n", res.Decision.Reason)
	} else {
		fmt.Fprintln(out, "result:     no match")
	}
}

func (s *Shell) printStatus() {
	st := s.ctrl.Status()
	store := s.ctrl.Store()
	fmt.Fprintf(s.out, "state:  %s\n", st.State)
	fmt.Fprintf(s.out, "set:    %s (%d regions)\n", store.ActiveName(), len(store.Active()))
	if st.State.IsActive() {
		fmt.Fprintf(s.out, "run:    %s, %d cycles, up %s\n", st.RunID, st.Cycles, time.Since(st.StartedAt).Round(time.Second))
	}
}

func (s *Shell) printSets() {
	PrintSets(s.out, s.ctrl.Store())
}

// PrintSets writes the set table of store to out, marking the active set.
func PrintSets(out io.Writer, store *regionset.Store) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tREGIONS\tCREATED")
	for _, set := range store.List() {
		marker := ""
		if set.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", marker, set.Name, set.RegionCount, set.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Fprintf(out, "%d of %d sets\n", store.Count(), store.Cap())
}

func (s *Shell) printRegions() {
	PrintRegions(s.out, s.ctrl.Store().Active())
}

// PrintRegions writes a region table to out.
func PrintRegions(out io.Writer, regions []region.Region) {
	if len(regions) == 0 {
		fmt.Fprintln(out, "no regions")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRECT\tTARGET\tENABLED\tCOMPARE\tACTIONS")
	for _, r := range regions {
		compare := "-"
		if r.CompareEnabled && r.CompareRegion != nil {
			compare = r.CompareRegion.String()
			if r.CompareTriggerOnly {
				compare += " only"
			}
		}
		actions := make([]string, len(r.Actions))
		for i, a := range r.Actions {
			actions[i] = region.Describe(a)
		}
		fmt.Fprintf(w, "%s\t%s\t%q\t%v\t%s\t%s\n", r.Name, r.Rect, r.TargetText, r.Enabled, compare, strings.Join(actions, "; "))
	}
	w.Flush()
}
